package infrastructure_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/camxfer/internal/config"
	"github.com/JaimeStill/camxfer/internal/infrastructure"
	"github.com/JaimeStill/camxfer/internal/journal"
	"github.com/JaimeStill/camxfer/pkg/source"
	"github.com/JaimeStill/camxfer/pkg/storage/storagetest"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func localConfig(root string) *config.Config {
	cfg := &config.Config{}
	cfg.Source.Kind = source.KindLocal
	cfg.Source.Root = root
	cfg.Storage.BucketPrefix = "sparcd-"
	return cfg
}

type unreachable struct {
	*storagetest.Memory
}

func (unreachable) ListBuckets(context.Context, string) ([]string, error) {
	return nil, errors.New("connection refused")
}

func TestStart(t *testing.T) {
	infra, err := infrastructure.Assemble(context.Background(), localConfig(t.TempDir()), discard(), storagetest.NewMemory())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if infra.Database != nil {
		t.Error("database should be nil when disabled")
	}
	if _, ok := infra.Journal.(journal.Noop); !ok {
		t.Errorf("journal: got %T, want journal.Noop", infra.Journal)
	}

	if err := infra.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !infra.Lifecycle.Ready() {
		t.Error("lifecycle should be ready after start")
	}
	if err := infra.Lifecycle.Shutdown(time.Second); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestStartFailures(t *testing.T) {
	tests := []struct {
		name  string
		root  func(t *testing.T) string
		store func() *storagetest.Memory
		wrap  bool
	}{
		{
			name:  "missing source root",
			root:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") },
			store: storagetest.NewMemory,
		},
		{
			name:  "unreachable storage",
			root:  func(t *testing.T) string { return t.TempDir() },
			store: storagetest.NewMemory,
			wrap:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := localConfig(tt.root(t))

			var (
				infra *infrastructure.Infrastructure
				err   error
			)
			if tt.wrap {
				infra, err = infrastructure.Assemble(context.Background(), cfg, discard(), unreachable{tt.store()})
			} else {
				infra, err = infrastructure.Assemble(context.Background(), cfg, discard(), tt.store())
			}
			if err != nil {
				t.Fatalf("assemble: %v", err)
			}

			if err := infra.Start(); err == nil {
				t.Error("expected start error")
			}
			if infra.Lifecycle.Ready() {
				t.Error("lifecycle should not be ready")
			}
		})
	}
}

func TestAssembleUnknownSource(t *testing.T) {
	cfg := localConfig(t.TempDir())
	cfg.Source.Kind = "ftp"

	if _, err := infrastructure.Assemble(context.Background(), cfg, discard(), storagetest.NewMemory()); err == nil {
		t.Error("expected error for unknown source kind")
	}
}
