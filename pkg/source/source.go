// Package source provides fetch-only access to the store that collections are migrated from.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/JaimeStill/camxfer/pkg/lifecycle"
)

// ErrNotFound indicates the requested source file or folder does not exist.
var ErrNotFound = errors.New("source file not found")

// Entry is one item of a source folder listing.
type Entry struct {
	Name  string
	IsDir bool
}

// System is the source store collaborator.
type System interface {
	// Start registers connection setup and teardown with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Fetch copies the file at p into destDir and returns the local path.
	// Returns ErrNotFound if the file does not exist.
	Fetch(ctx context.Context, p, destDir string) (string, error)
	// List returns the entries of the folder at dir, sorted by name.
	List(ctx context.Context, dir string) ([]Entry, error)
}

// New creates the source system selected by cfg.Kind.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	switch cfg.Kind {
	case KindLocal:
		return NewLocal(cfg.Root, logger), nil
	case KindSFTP:
		return newSFTP(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

type local struct {
	root   string
	logger *slog.Logger
}

// NewLocal creates a source system reading from the local filesystem.
// Source paths are resolved beneath root; an empty root uses paths as given.
func NewLocal(root string, logger *slog.Logger) System {
	return &local{
		root:   root,
		logger: logger.With("system", "source", "kind", KindLocal),
	}
}

func (l *local) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() error {
		if l.root == "" {
			return nil
		}
		if _, err := os.Stat(l.root); err != nil {
			return fmt.Errorf("source root %s: %w", l.root, err)
		}
		return nil
	})
	return nil
}

func (l *local) Fetch(_ context.Context, p, destDir string) (string, error) {
	src, err := os.Open(l.resolve(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("open source %s: %w", p, err)
	}
	defer src.Close()

	dest := filepath.Join(destDir, path.Base(p))
	if err := writeFile(dest, src); err != nil {
		return "", fmt.Errorf("fetch %s: %w", p, err)
	}

	l.logger.Debug("file fetched", "path", p, "dest", dest)
	return dest, nil
}

func (l *local) List(_ context.Context, dir string) ([]Entry, error) {
	items, err := os.ReadDir(l.resolve(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("list source %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{Name: item.Name(), IsDir: item.IsDir()})
	}
	return entries, nil
}

func (l *local) resolve(p string) string {
	if l.root == "" {
		return filepath.FromSlash(p)
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(p, "/")))
}

func writeFile(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
}
