// Package journal persists transfer runs and their per-asset outcomes to
// PostgreSQL. The ledger stays authoritative; the journal is an operational
// history that can be queried after a run.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/camxfer/internal/transfer"
	"github.com/JaimeStill/camxfer/pkg/query"
	"github.com/JaimeStill/camxfer/pkg/repository"
)

// System records transfer runs.
type System interface {
	// Begin opens a run for collection migrated from source.
	Begin(ctx context.Context, collection, source string) (Run, error)
	// Recorder returns an outcome recorder bound to run.
	Recorder(run uuid.UUID) transfer.Recorder
	// Finish stores the final counts of run.
	Finish(ctx context.Context, run uuid.UUID, counts Counts) error
	// Run returns a stored run.
	Run(ctx context.Context, id uuid.UUID) (Run, error)
	// Runs returns stored runs matching filter, newest first.
	Runs(ctx context.Context, filter Filter) ([]Run, error)
	// Outcomes returns the entries of a run in insertion order, limited to
	// state when it is not empty.
	Outcomes(ctx context.Context, id uuid.UUID, state string) ([]Entry, error)
}

// Filter selects runs. Zero fields match everything.
type Filter struct {
	Collection string
	Since      time.Time
	Limit      int
}

var errs = repository.Errors{NotFound: ErrRunNotFound, ForeignKey: ErrRunNotFound}

const runColumns = `id, collection, source, started_at, finished_at,
  total, transferred, on_destination, already_recorded, failed, recorded`

var runProjection = query.NewProjection("transfer_runs", "r").
	Project("id", "id").
	Project("collection", "collection").
	Project("source", "source").
	Project("started_at", "startedAt").
	Project("finished_at", "finishedAt").
	Project("total", "total").
	Project("transferred", "transferred").
	Project("on_destination", "onDestination").
	Project("already_recorded", "alreadyRecorded").
	Project("failed", "failed").
	Project("recorded", "recorded")

var outcomeProjection = query.NewProjection("transfer_outcomes", "o").
	Project("run_id", "runId").
	Project("upload", "upload").
	Project("asset", "asset").
	Project("source", "source").
	Project("bucket", "bucket").
	Project("destination", "destination").
	Project("state", "state").
	Project("progress", "progress").
	Project("recorded", "recorded").
	Project("error", "error").
	Project("created_at", "createdAt")

type journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a journal backed by db.
func New(db *sql.DB, logger *slog.Logger) System {
	return &journal{
		db:     db,
		logger: logger.With("system", "journal"),
	}
}

func (j *journal) Begin(ctx context.Context, collection, source string) (Run, error) {
	q := `INSERT INTO transfer_runs (id, collection, source)
	VALUES ($1, $2, $3)
	RETURNING ` + runColumns

	args := []any{uuid.New(), collection, source}
	run, err := repository.QueryOne(ctx, j.db, q, args, scanRun)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", errs.Map(err))
	}

	j.logger.Info("run started", "id", run.ID, "collection", collection)
	return run, nil
}

func (j *journal) Recorder(run uuid.UUID) transfer.Recorder {
	return &recorder{journal: j, run: run}
}

func (j *journal) Finish(ctx context.Context, run uuid.UUID, counts Counts) error {
	err := repository.WithTx(ctx, j.db, func(tx *sql.Tx) error {
		var failed int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transfer_outcomes WHERE run_id = $1 AND state = $2`,
			run, transfer.TransferFailed.String(),
		).Scan(&failed)
		if err != nil {
			return err
		}
		if failed != counts.Failed {
			j.logger.Warn("journal failure count differs from summary",
				"id", run, "journal", failed, "summary", counts.Failed)
		}

		return repository.ExecExpectOne(ctx, tx, `
			UPDATE transfer_runs
			SET finished_at = NOW(), total = $2, transferred = $3, on_destination = $4,
			  already_recorded = $5, failed = $6, recorded = $7
			WHERE id = $1`,
			run, counts.Total, counts.Transferred, counts.OnDestination,
			counts.AlreadyRecorded, counts.Failed, counts.Recorded,
		)
	})
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run, errs.Map(err))
	}

	j.logger.Info("run finished", "id", run, "total", counts.Total, "failed", counts.Failed)
	return nil
}

func (j *journal) Run(ctx context.Context, id uuid.UUID) (Run, error) {
	q, args := query.NewBuilder(runProjection).WhereEquals("id", id).Build()
	run, err := repository.QueryOne(ctx, j.db, q, args, scanRun)
	if err != nil {
		return Run{}, errs.Map(err)
	}
	return run, nil
}

func (j *journal) Runs(ctx context.Context, filter Filter) ([]Run, error) {
	q, args := query.NewBuilder(runProjection, query.Order{Field: "startedAt", Descending: true}).
		WhereEquals("collection", filter.Collection).
		WhereSince("startedAt", filter.Since).
		Limit(filter.Limit).
		Build()

	return repository.QueryMany(ctx, j.db, q, args, scanRun)
}

func (j *journal) Outcomes(ctx context.Context, id uuid.UUID, state string) ([]Entry, error) {
	if _, err := j.Run(ctx, id); err != nil {
		return nil, err
	}

	q, args := query.NewBuilder(outcomeProjection, query.Order{Field: "o.id"}).
		WhereEquals("runId", id).
		WhereEquals("state", state).
		Build()

	return repository.QueryMany(ctx, j.db, q, args, scanEntry)
}

type recorder struct {
	journal *journal
	run     uuid.UUID
}

func (r *recorder) Record(ctx context.Context, o transfer.Outcome) error {
	e := EntryOf(r.run, o)
	err := repository.ExecExpectOne(ctx, r.journal.db, `
		INSERT INTO transfer_outcomes
		  (run_id, upload, asset, source, bucket, destination, state, progress, recorded, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.RunID, e.Upload, e.Asset, e.Source, e.Bucket, e.Destination,
		e.State, strings.Join(e.Progress, progressSeparator), e.Recorded, e.Error,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Asset, errs.Map(err))
	}
	return nil
}
