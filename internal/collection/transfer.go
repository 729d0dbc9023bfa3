package collection

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/google/uuid"

	"github.com/JaimeStill/camxfer/internal/journal"
	"github.com/JaimeStill/camxfer/internal/manifest"
	"github.com/JaimeStill/camxfer/internal/recovery"
	"github.com/JaimeStill/camxfer/internal/repair"
	"github.com/JaimeStill/camxfer/internal/transfer"
)

// Report summarizes a collection run.
type Report struct {
	CollectionID string
	SourceID     string
	Bucket       string
	RunID        uuid.UUID
	Uploads      int
	Counts       journal.Counts
	Recovery     recovery.Report
	// Stored counts the upload ledgers written back to the destination.
	Stored int
	// Failed lists the uploads that stopped on a structural fault.
	Failed []string
}

func (r *Report) addRecovery(rep recovery.Report) {
	r.Recovery.Archives += rep.Archives
	r.Recovery.Failed += rep.Failed
	r.Recovery.Recorded += rep.Recorded
	r.Recovery.Uploaded += rep.Uploaded
	r.Recovery.Missing += rep.Missing
}

// Transfer migrates every upload of m into the destination collection
// destID, or into a new collection when destID is empty. A structural fault
// in one upload is reported and does not stop the remaining uploads.
func (s *Service) Transfer(ctx context.Context, m *manifest.Manifest, destID string) (Report, error) {
	id := destID
	if id == "" {
		id = uuid.NewString()
	}

	rep := Report{
		CollectionID: id,
		SourceID:     m.CollectionID(),
		Bucket:       s.buckets.Bucket(id),
	}

	s.logger.Info("collection transfer starting",
		"source", m.CollectionID(),
		"collection", id,
		"new", destID == "",
		"uploads", len(m.Uploads),
		"assets", m.AssetCount())

	if err := s.ensureBucket(ctx, rep.Bucket); err != nil {
		return rep, err
	}

	scratch, err := s.scratch("camxfer_")
	if err != nil {
		return rep, err
	}
	defer os.RemoveAll(scratch)

	if err := s.bootstrap(ctx, m.BasePath, id, rep.Bucket, scratch); err != nil {
		return rep, err
	}

	audit, err := transfer.OpenAuditLog(s.cfg.AuditLog)
	if err != nil {
		return rep, err
	}
	defer audit.Close()

	run, j := s.begin(ctx, id, m.BasePath)
	rep.RunID = run.ID

	engine := transfer.New(s.store, s.src, audit, s.cfg, s.logger).
		WithRecorder(j.Recorder(run.ID))

	for i, u := range m.Uploads {
		s.logger.Info("upload starting",
			"collection", id,
			"upload", u.Name,
			"index", i+1,
			"of", len(m.Uploads),
			"images", len(u.Images))

		rep.Uploads++
		if err := s.transferUpload(ctx, engine, m, u, &rep, scratch); err != nil {
			rep.Failed = append(rep.Failed, u.Name)
			s.logger.Error("upload failed", "collection", id, "upload", u.Name, "error", err)
		}
	}

	if err := j.Finish(ctx, run.ID, rep.Counts); err != nil {
		s.logger.Warn("journal finish failed", "run", run.ID, "error", err)
	}

	s.logger.Info("collection transfer complete",
		"collection", id,
		"run", run.ID,
		"total", rep.Counts.Total,
		"transferred", rep.Counts.Transferred,
		"failed", rep.Counts.Failed,
		"uploads_failed", len(rep.Failed))
	return rep, nil
}

// begin opens a journal run. A journal fault falls back to an unpersisted
// run so the transfer proceeds.
func (s *Service) begin(ctx context.Context, id, sourcePath string) (journal.Run, journal.System) {
	run, err := s.journal.Begin(ctx, id, sourcePath)
	if err == nil {
		return run, s.journal
	}

	s.logger.Warn("journal unavailable, run not persisted", "collection", id, "error", err)
	j := journal.Noop{}
	run, _ = j.Begin(ctx, id, sourcePath)
	return run, j
}

func (s *Service) transferUpload(ctx context.Context, engine *transfer.Engine, m *manifest.Manifest, u manifest.Upload, rep *Report, scratch string) error {
	dir, err := os.MkdirTemp(scratch, "upload_")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFault, err)
	}
	defer os.RemoveAll(dir)

	srcBase := m.UploadPath(u)
	destBase := UploadBase(rep.CollectionID, u.Name)

	if err := s.uploadMeta(ctx, rep.Bucket, srcBase, destBase, dir); err != nil {
		s.logger.Error("upload metadata not transferred",
			"source", path.Join(srcBase, UploadMetaFile),
			"destination", path.Join(destBase, UploadMetaFile),
			"error", err)
	}

	l, err := s.openLedger(ctx, rep.Bucket, destBase, dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFault, err)
	}

	listing, err := recovery.LoadListing(ctx, s.src, srcBase, dir)
	if err != nil {
		s.logger.Warn("loose metadata unavailable", "source", srcBase, "error", err)
		listing = nil
	}

	summary := engine.Run(ctx, transfer.Batch{
		CollectionID: rep.CollectionID,
		Upload:       u.Name,
		Bucket:       rep.Bucket,
		SourceBase:   srcBase,
		DestBase:     destBase,
		Ledger:       l,
		Listing:      listing,
		Scratch:      dir,
	}, u.Images)
	rep.Counts.Add(journal.CountsOf(summary))

	if s.cfg.Archives {
		found, err := s.recoverer.Archives(ctx, s.target(m, u, rep), l, dir)
		if err != nil {
			s.logger.Error("archive recovery failed", "upload", u.Name, "error", err)
		}
		rep.addRecovery(found)
	}

	if len(s.rules) > 0 && repair.ApplyAll(l, s.rules) {
		s.logger.Info("repair rules applied", "upload", destBase)
	}

	stored, err := s.storeLedger(ctx, rep.Bucket, destBase, dir, l)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFault, err)
	}
	if stored {
		rep.Stored++
	}
	return nil
}

func (s *Service) target(m *manifest.Manifest, u manifest.Upload, rep *Report) recovery.Target {
	return recovery.Target{
		CollectionID: rep.CollectionID,
		Bucket:       rep.Bucket,
		DestBase:     UploadBase(rep.CollectionID, u.Name),
		SourceDir:    path.Join(m.BasePath, UploadsFolder),
		Upload:       u.Name,
	}
}

// Recover runs the archive fallback for every upload of m against the
// existing destination collection destID.
func (s *Service) Recover(ctx context.Context, m *manifest.Manifest, destID string) (Report, error) {
	rep := Report{
		CollectionID: destID,
		SourceID:     m.CollectionID(),
		Bucket:       s.buckets.Bucket(destID),
	}

	if err := s.requireBucket(ctx, rep.Bucket); err != nil {
		return rep, err
	}

	scratch, err := s.scratch("camxfer_")
	if err != nil {
		return rep, err
	}
	defer os.RemoveAll(scratch)

	for _, u := range m.Uploads {
		rep.Uploads++
		if err := s.recoverUpload(ctx, m, u, &rep, scratch); err != nil {
			rep.Failed = append(rep.Failed, u.Name)
			s.logger.Error("upload recovery failed", "collection", destID, "upload", u.Name, "error", err)
		}
	}
	return rep, nil
}

func (s *Service) recoverUpload(ctx context.Context, m *manifest.Manifest, u manifest.Upload, rep *Report, scratch string) error {
	dir, err := os.MkdirTemp(scratch, "upload_")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFault, err)
	}
	defer os.RemoveAll(dir)

	t := s.target(m, u, rep)
	l, err := s.openLedger(ctx, rep.Bucket, t.DestBase, dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFault, err)
	}

	found, err := s.recoverer.Archives(ctx, t, l, dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFault, err)
	}
	rep.addRecovery(found)

	stored, err := s.storeLedger(ctx, rep.Bucket, t.DestBase, dir, l)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFault, err)
	}
	if stored {
		rep.Stored++
	}
	return nil
}
