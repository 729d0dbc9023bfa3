package journal

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/camxfer/internal/transfer"
	"github.com/JaimeStill/camxfer/pkg/repository"
)

// Counts are the per-state totals stored for a run.
type Counts struct {
	Total           int `json:"total"`
	Transferred     int `json:"transferred"`
	OnDestination   int `json:"on_destination"`
	AlreadyRecorded int `json:"already_recorded"`
	Failed          int `json:"failed"`
	Recorded        int `json:"recorded"`
}

// CountsOf flattens a batch summary.
func CountsOf(s transfer.Summary) Counts {
	return Counts{
		Total:           s.Total,
		Transferred:     s.States[transfer.Transferred],
		OnDestination:   s.States[transfer.AlreadyOnDestination],
		AlreadyRecorded: s.States[transfer.AlreadyRecorded],
		Failed:          s.States[transfer.TransferFailed],
		Recorded:        s.Recorded,
	}
}

// Add accumulates other into c.
func (c *Counts) Add(other Counts) {
	c.Total += other.Total
	c.Transferred += other.Transferred
	c.OnDestination += other.OnDestination
	c.AlreadyRecorded += other.AlreadyRecorded
	c.Failed += other.Failed
	c.Recorded += other.Recorded
}

// Run is one journaled transfer of a collection.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Collection string     `json:"collection"`
	Source     string     `json:"source"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Counts
}

// Entry is one journaled asset outcome.
type Entry struct {
	RunID       uuid.UUID `json:"run_id"`
	Upload      string    `json:"upload"`
	Asset       string    `json:"asset"`
	Source      string    `json:"source"`
	Bucket      string    `json:"bucket"`
	Destination string    `json:"destination"`
	State       string    `json:"state"`
	Progress    []string  `json:"progress"`
	Recorded    bool      `json:"recorded"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const progressSeparator = "\n"

// EntryOf converts an asset outcome into a journal entry for run.
func EntryOf(run uuid.UUID, o transfer.Outcome) Entry {
	e := Entry{
		RunID:       run,
		Upload:      o.Upload,
		Asset:       o.Asset,
		Source:      o.Source,
		Bucket:      o.Bucket,
		Destination: o.Destination,
		State:       o.State.String(),
		Progress:    o.Progress,
		Recorded:    o.Recorded,
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.ID, &r.Collection, &r.Source, &r.StartedAt, &r.FinishedAt,
		&r.Total, &r.Transferred, &r.OnDestination, &r.AlreadyRecorded, &r.Failed, &r.Recorded,
	)
	return r, err
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var (
		e        Entry
		progress string
	)
	err := s.Scan(
		&e.RunID, &e.Upload, &e.Asset, &e.Source, &e.Bucket, &e.Destination,
		&e.State, &progress, &e.Recorded, &e.Error, &e.CreatedAt,
	)
	if progress != "" {
		e.Progress = strings.Split(progress, progressSeparator)
	}
	return e, err
}
