package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/JaimeStill/camxfer/pkg/source"
	"github.com/JaimeStill/camxfer/pkg/storage"
	"github.com/mholt/archiver/v3"
)

// ArchiveSuffix is the extension of bundled upload archives.
const ArchiveSuffix = ".tar"

// Target locates one upload batch on both stores.
type Target struct {
	CollectionID string
	Bucket       string
	// DestBase is the destination upload folder images are stored under.
	DestBase string
	// SourceDir is the source folder holding the upload's archives.
	SourceDir string
	// Upload is the batch name; its archives are named <Upload>-*.tar.
	Upload string
}

// IsArchive reports whether name is an archive of the upload batch.
func (t Target) IsArchive(name string) bool {
	return strings.HasPrefix(name, t.Upload+"-") && strings.HasSuffix(name, ArchiveSuffix)
}

// Report summarizes an archive recovery pass.
type Report struct {
	Archives int
	Failed   int
	Recorded int
	Uploaded int
	Missing  int
}

// Recoverer runs the archive fallback against a ledger.
type Recoverer struct {
	store  storage.System
	src    source.System
	logger *slog.Logger
}

// New creates a Recoverer.
func New(store storage.System, src source.System, logger *slog.Logger) *Recoverer {
	return &Recoverer{
		store:  store,
		src:    src,
		logger: logger.With("system", "recovery"),
	}
}

// Archives processes every archive of the target batch. Each archive is
// fetched and unpacked into its own scratch folder beneath scratch, which is
// removed before the next archive starts. Images whose metadata is listed in
// the archive get ledger rows when missing and are uploaded when absent from
// the destination. A failed archive is reported and skipped.
func (r *Recoverer) Archives(ctx context.Context, t Target, l *ledger.Ledger, scratch string) (Report, error) {
	var rep Report

	entries, err := r.src.List(ctx, t.SourceDir)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return rep, nil
		}
		return rep, fmt.Errorf("list archives %s: %w", t.SourceDir, err)
	}

	for _, e := range entries {
		if e.IsDir || !t.IsArchive(e.Name) {
			continue
		}
		rep.Archives++

		if err := r.archive(ctx, t, l, scratch, e.Name, &rep); err != nil {
			rep.Failed++
			r.logger.Error("archive recovery failed",
				"collection", t.CollectionID,
				"upload", t.Upload,
				"archive", e.Name,
				"error", err)
		}
	}

	r.logger.Info("archive recovery complete",
		"collection", t.CollectionID,
		"upload", t.Upload,
		"archives", rep.Archives,
		"failed", rep.Failed,
		"recorded", rep.Recorded,
		"uploaded", rep.Uploaded,
		"missing", rep.Missing)
	return rep, nil
}

func (r *Recoverer) archive(ctx context.Context, t Target, l *ledger.Ledger, scratch, name string, rep *Report) error {
	dir, err := os.MkdirTemp(scratch, "tar_")
	if err != nil {
		return fmt.Errorf("scratch for %s: %w", name, err)
	}
	defer os.RemoveAll(dir)

	local, err := r.src.Fetch(ctx, path.Join(t.SourceDir, name), dir)
	if err != nil {
		return fmt.Errorf("%w: fetch %s: %w", ErrExtract, name, err)
	}

	root := filepath.Join(dir, "contents")
	if err := archiver.Unarchive(local, root); err != nil {
		return fmt.Errorf("%w: unpack %s: %w", ErrExtract, name, err)
	}

	listing, folders, err := scanRoot(root)
	if err != nil {
		return err
	}
	if listing.Len() == 0 {
		return fmt.Errorf("%w: no metadata listing in %s", ErrNoMetadata, name)
	}
	if len(folders) == 0 {
		return fmt.Errorf("%w: no image folder in %s", ErrExtract, name)
	}

	for i := 0; i < len(folders); i++ {
		folder := folders[i]
		items, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(folder)))
		if err != nil {
			return fmt.Errorf("%w: read %s: %w", ErrExtract, folder, err)
		}

		for _, item := range items {
			rel := path.Join(folder, item.Name())
			if item.IsDir() {
				folders = append(folders, rel)
				continue
			}
			if err := r.image(ctx, t, l, listing, root, rel, rep); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Recoverer) image(ctx context.Context, t Target, l *ledger.Ledger, listing *Listing, root, rel string, rep *Report) error {
	entry, err := listing.LookupPrefix(rel)
	if err != nil {
		rep.Missing++
		r.logger.Warn("no archived metadata for image", "upload", t.Upload, "asset", rel)
		return nil
	}

	dest := path.Join(t.DestBase, rel)
	exists, err := r.store.Exists(ctx, t.Bucket, dest)
	if err != nil {
		return fmt.Errorf("probe %s: %w", dest, err)
	}
	if exists && l.HasMedia(dest) {
		return nil
	}

	if !exists {
		local := filepath.Join(root, filepath.FromSlash(rel))
		if err := r.store.PutFile(ctx, t.Bucket, dest, local, storage.ImageContentType(local)); err != nil {
			return fmt.Errorf("upload %s: %w", dest, err)
		}
		rep.Uploaded++
		r.logger.Info("archived image uploaded", "bucket", t.Bucket, "destination", dest)
	}

	if l.Record(t.CollectionID, dest, entry.Attributes, entry.Species...) {
		rep.Recorded++
	}
	return nil
}

// scanRoot loads the top-level metadata listings of an unpacked archive and
// returns its top-level folders.
func scanRoot(root string) (*Listing, []string, error) {
	items, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s: %w", ErrExtract, root, err)
	}

	var lines []string
	var folders []string
	for _, item := range items {
		switch {
		case item.IsDir():
			folders = append(folders, item.Name())
		case IsMetaFile(item.Name()):
			read, err := readMetaFile(filepath.Join(root, item.Name()))
			if err != nil {
				return nil, nil, err
			}
			lines = append(lines, read...)
		}
	}
	return NewListing(lines), folders, nil
}
