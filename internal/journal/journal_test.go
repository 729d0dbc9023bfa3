package journal_test

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/camxfer/internal/journal"
	"github.com/JaimeStill/camxfer/internal/transfer"
)

func TestNoop(t *testing.T) {
	var j journal.System = journal.Noop{}
	ctx := context.Background()

	run, err := j.Begin(ctx, "C1", "/data/C1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if run.ID == uuid.Nil {
		t.Error("begin should issue a run id")
	}
	if run.Collection != "C1" {
		t.Errorf("collection: got %s, want C1", run.Collection)
	}
	if j.Recorder(run.ID) != nil {
		t.Error("noop recorder should be nil")
	}
	if err := j.Finish(ctx, run.ID, journal.Counts{}); err != nil {
		t.Errorf("finish: %v", err)
	}
	if _, err := j.Run(ctx, run.ID); !errors.Is(err, journal.ErrDisabled) {
		t.Errorf("run: got %v, want %v", err, journal.ErrDisabled)
	}
	if _, err := j.Runs(ctx, journal.Filter{Collection: "C1"}); !errors.Is(err, journal.ErrDisabled) {
		t.Errorf("runs: got %v, want %v", err, journal.ErrDisabled)
	}
	if _, err := j.Outcomes(ctx, run.ID, ""); !errors.Is(err, journal.ErrDisabled) {
		t.Errorf("outcomes: got %v, want %v", err, journal.ErrDisabled)
	}
}

func TestCountsOf(t *testing.T) {
	s := transfer.Summary{
		Total: 6,
		States: map[transfer.State]int{
			transfer.Transferred:          2,
			transfer.AlreadyOnDestination: 1,
			transfer.AlreadyRecorded:      2,
			transfer.TransferFailed:       1,
		},
		Recorded: 3,
		Faults:   1,
	}

	got := journal.CountsOf(s)
	want := journal.Counts{Total: 6, Transferred: 2, OnDestination: 1, AlreadyRecorded: 2, Failed: 1, Recorded: 3}
	if got != want {
		t.Errorf("counts: got %+v, want %+v", got, want)
	}

	got.Add(want)
	if got.Total != 12 || got.Failed != 2 {
		t.Errorf("add: got %+v", got)
	}
}

func TestEntryOf(t *testing.T) {
	run := uuid.New()
	o := transfer.Outcome{
		Upload:      "batch 1",
		Asset:       "img/0001.jpg",
		Source:      "/data/C1/Uploads/batch 1/img/0001.jpg",
		Bucket:      "sparcd-C1",
		Destination: "Collections/C1/Uploads/batch.1/img/0001.jpg",
		State:       transfer.TransferFailed,
		Progress:    []string{"Transferring", "Done"},
		Err:         errors.New("fetch failed"),
	}

	e := journal.EntryOf(run, o)
	if e.RunID != run {
		t.Errorf("run id: got %s, want %s", e.RunID, run)
	}
	if e.State != "transfer_failed" {
		t.Errorf("state: got %s, want transfer_failed", e.State)
	}
	if e.Error != "fetch failed" {
		t.Errorf("error: got %s, want fetch failed", e.Error)
	}
	if len(e.Progress) != 2 {
		t.Errorf("progress: got %v", e.Progress)
	}

	o.Err = nil
	if e := journal.EntryOf(run, o); e.Error != "" {
		t.Errorf("error: got %q, want empty", e.Error)
	}
}

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(journal.Migrations(), "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 {
		t.Fatal("no migrations embedded")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", n)
		}
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
	if len(ups) != len(downs) {
		t.Errorf("up/down count: got %d/%d", len(ups), len(downs))
	}
}
