// Package collection orchestrates the migration of whole collections: bucket
// and sidecar bootstrap, ledger transport between the destination store and a
// scratch folder, and the transfer, recovery, repair, and verification passes
// over every upload batch.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/JaimeStill/camxfer/internal/journal"
	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/JaimeStill/camxfer/internal/recovery"
	"github.com/JaimeStill/camxfer/internal/repair"
	"github.com/JaimeStill/camxfer/internal/transfer"
	"github.com/JaimeStill/camxfer/internal/verify"
	"github.com/JaimeStill/camxfer/pkg/source"
	"github.com/JaimeStill/camxfer/pkg/storage"
)

// Service runs collection-level operations. Collections and their upload
// batches are processed sequentially.
type Service struct {
	store     storage.System
	src       source.System
	buckets   *storage.Config
	cfg       *transfer.Config
	recoverer *recovery.Recoverer
	verifier  *verify.Verifier
	journal   journal.System
	rules     []repair.Rule
	logger    *slog.Logger
}

// New creates a Service. Without a journal, runs are not persisted.
func New(store storage.System, src source.System, buckets *storage.Config, cfg *transfer.Config, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		src:       src,
		buckets:   buckets,
		cfg:       cfg,
		recoverer: recovery.New(store, src, logger),
		journal:   journal.Noop{},
		logger:    logger.With("system", "collection"),
	}
}

// WithJournal sets the run journal.
func (s *Service) WithJournal(j journal.System) *Service {
	s.journal = j
	return s
}

// WithVerifier sets the verifier used by Verify.
func (s *Service) WithVerifier(v *verify.Verifier) *Service {
	s.verifier = v
	return s
}

// WithRules sets repair rules applied to each batch ledger after a transfer.
func (s *Service) WithRules(rules []repair.Rule) *Service {
	s.rules = rules
	return s
}

// scratch creates a private working folder. The caller removes it.
func (s *Service) scratch(pattern string) (string, error) {
	dir, err := os.MkdirTemp(s.cfg.ScratchDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create scratch folder: %w", err)
	}
	return dir, nil
}

// openLedger downloads the ledger files of destBase into dir and loads them.
// Ledger files missing from the destination load as empty tables.
func (s *Service) openLedger(ctx context.Context, bucket, destBase, dir string) (*ledger.Ledger, error) {
	for _, name := range ledger.Files() {
		key := path.Join(destBase, name)
		err := s.store.Get(ctx, bucket, key, filepath.Join(dir, name))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", key, err)
		}
	}
	return ledger.Load(dir, s.cfg.MatchMode())
}

// storeLedger saves and uploads a dirty ledger. A clean ledger is left
// untouched on the destination.
func (s *Service) storeLedger(ctx context.Context, bucket, destBase, dir string, l *ledger.Ledger) (bool, error) {
	if !l.Dirty() {
		s.logger.Debug("ledger unchanged", "bucket", bucket, "upload", destBase)
		return false, nil
	}

	if err := ledger.Save(l, dir); err != nil {
		return false, err
	}

	for _, name := range ledger.Files() {
		key := path.Join(destBase, name)
		if err := s.store.PutFile(ctx, bucket, key, filepath.Join(dir, name), ledger.ContentType); err != nil {
			return false, fmt.Errorf("upload %s: %w", key, err)
		}
	}

	s.logger.Info("ledger stored", "bucket", bucket, "upload", destBase)
	return true, nil
}

// uploadFolders lists the destination upload folders of a collection.
func (s *Service) uploadFolders(ctx context.Context, bucket, id string) ([]string, error) {
	objects, err := s.store.ListPrefix(ctx, bucket, UploadsBase(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoBucket, bucket)
		}
		return nil, fmt.Errorf("list uploads of %s: %w", id, err)
	}

	var folders []string
	for _, o := range objects {
		if o.IsContainer {
			folders = append(folders, path.Clean(o.Name))
		}
	}
	return folders, nil
}

func (s *Service) requireBucket(ctx context.Context, bucket string) error {
	ok, err := s.store.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoBucket, bucket)
	}
	return nil
}
