package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/camxfer/internal/transfer"
)

// Noop is the journal used when no database is configured. Runs are issued
// identifiers but nothing is stored.
type Noop struct{}

func (Noop) Begin(_ context.Context, collection, source string) (Run, error) {
	return Run{ID: uuid.New(), Collection: collection, Source: source, StartedAt: time.Now().UTC()}, nil
}

func (Noop) Recorder(uuid.UUID) transfer.Recorder { return nil }

func (Noop) Finish(context.Context, uuid.UUID, Counts) error { return nil }

func (Noop) Run(context.Context, uuid.UUID) (Run, error) { return Run{}, ErrDisabled }

func (Noop) Runs(context.Context, Filter) ([]Run, error) { return nil, ErrDisabled }

func (Noop) Outcomes(context.Context, uuid.UUID, string) ([]Entry, error) { return nil, ErrDisabled }
