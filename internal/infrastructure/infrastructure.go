// Package infrastructure assembles the systems every command needs: logging,
// lifecycle coordination, the destination and source stores, and the
// optional run journal.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/camxfer/internal/config"
	"github.com/JaimeStill/camxfer/internal/journal"
	"github.com/JaimeStill/camxfer/pkg/database"
	"github.com/JaimeStill/camxfer/pkg/lifecycle"
	"github.com/JaimeStill/camxfer/pkg/source"
	"github.com/JaimeStill/camxfer/pkg/storage"
)

// Infrastructure holds the core systems shared by all commands.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Storage   storage.System
	Source    source.System
	// Database is nil when the journal is disabled.
	Database database.System
	Journal  journal.System

	bucketPrefix string
}

// New creates an Infrastructure from the configuration. It initializes all
// systems but does not contact them; call Start separately.
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return Assemble(ctx, cfg, logger, store)
}

// Assemble builds an Infrastructure around an existing destination store.
func Assemble(ctx context.Context, cfg *config.Config, logger *slog.Logger, store storage.System) (*Infrastructure, error) {
	src, err := source.New(&cfg.Source, logger)
	if err != nil {
		return nil, fmt.Errorf("source init failed: %w", err)
	}

	infra := &Infrastructure{
		Lifecycle:    lifecycle.NewWithContext(ctx),
		Logger:       logger,
		Storage:      store,
		Source:       src,
		Journal:      journal.Noop{},
		bucketPrefix: cfg.Storage.BucketPrefix,
	}

	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		infra.Database = db
		infra.Journal = journal.New(db.Connection(), logger)
	}

	return infra, nil
}

// Start registers every system with the lifecycle coordinator and waits for
// the startup hooks. A failed hook fails the start.
func (i *Infrastructure) Start() error {
	if err := i.Source.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("source start failed: %w", err)
	}

	i.Lifecycle.OnStartup(func() error {
		if _, err := i.Storage.ListBuckets(i.Lifecycle.Context(), i.bucketPrefix); err != nil {
			return fmt.Errorf("storage unreachable: %w", err)
		}
		i.Logger.Debug("storage reachable")
		return nil
	})

	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}

	return i.Lifecycle.WaitForStartup()
}
