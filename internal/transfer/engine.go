// Package transfer decides, per asset, whether an image is transferred,
// skipped, or only gains ledger rows, and records every decision.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/JaimeStill/camxfer/internal/manifest"
	"github.com/JaimeStill/camxfer/internal/recovery"
	"github.com/JaimeStill/camxfer/internal/repair"
	"github.com/JaimeStill/camxfer/pkg/source"
	"github.com/JaimeStill/camxfer/pkg/storage"
)

// Recorder receives every asset outcome in addition to the audit log.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Batch is one upload batch being processed and the ledger it updates.
type Batch struct {
	CollectionID string
	Upload       string
	Bucket       string
	// SourceBase is the source folder assets are fetched from.
	SourceBase string
	// DestBase is the destination upload folder assets are stored under.
	DestBase string
	Ledger   *ledger.Ledger
	// Listing is the loose secondary metadata of the batch; nil means none.
	Listing *recovery.Listing
	// Scratch is the folder fetched files are staged in.
	Scratch string
}

// Engine runs the per-asset decision for a batch. It is not safe for
// concurrent use; batches are processed sequentially.
type Engine struct {
	store          storage.System
	src            source.System
	audit          *AuditLog
	recorder       Recorder
	correctSpecies bool
	logger         *slog.Logger
}

// New creates an Engine writing outcomes to audit.
func New(store storage.System, src source.System, audit *AuditLog, cfg *Config, logger *slog.Logger) *Engine {
	return &Engine{
		store:          store,
		src:            src,
		audit:          audit,
		correctSpecies: cfg.CorrectSpecies,
		logger:         logger.With("system", "transfer"),
	}
}

// WithRecorder sets an additional outcome recorder.
func (e *Engine) WithRecorder(r Recorder) *Engine {
	e.recorder = r
	return e
}

// Run processes assets in order and returns the batch summary. Per-asset
// faults are recorded and never stop the batch.
func (e *Engine) Run(ctx context.Context, b Batch, assets []manifest.Asset) Summary {
	var s Summary
	for _, a := range assets {
		s.add(e.Asset(ctx, b, a))
	}

	e.logger.Info("batch processed",
		"collection", b.CollectionID,
		"upload", b.Upload,
		"assets", s.Total,
		"recorded", s.Recorded,
		"faults", s.Faults)
	return s
}

// Asset processes one asset. Every call, whatever its outcome, appends one
// row to the audit log.
func (e *Engine) Asset(ctx context.Context, b Batch, a manifest.Asset) (o Outcome) {
	o = Outcome{
		Collection:  b.CollectionID,
		Upload:      b.Upload,
		Asset:       a.RelativePath,
		Source:      path.Join(b.SourceBase, a.RelativePath),
		Bucket:      b.Bucket,
		Destination: path.Join(b.DestBase, a.RelativePath),
	}
	defer func() {
		o.note("Done")
		e.complete(ctx, o)
	}()

	if b.Ledger.HasMedia(o.Destination) {
		o.State = AlreadyRecorded
		o.note("Found in ledger - not uploading")
		e.logger.Debug("asset already recorded", "asset", o.Asset)

		if e.correctSpecies && a.HasMetadata() {
			attrs := a.Attributes()
			if repair.CorrectSpecies(b.Ledger, o.Destination, attrs) {
				o.Recorded = true
				o.note("Species corrected to %s", attrs[ledger.AttrScientificName])
			}
		}
		return o
	}

	exists, err := e.store.Exists(ctx, b.Bucket, o.Destination)
	if err != nil {
		o.State = TransferFailed
		o.Err = fmt.Errorf("%w: probe %s: %w", ErrTransferFault, o.Destination, err)
		o.note("Error: destination check failed")
		e.fault(o)
		return o
	}

	if exists {
		o.State = AlreadyOnDestination
		e.recordExisting(b, a, &o)
		return o
	}

	e.transfer(ctx, b, &o)

	if a.HasMetadata() {
		o.note("Updating ledger")
		o.Recorded = b.Ledger.Record(b.CollectionID, o.Destination, a.Attributes())
		if o.State == Transferred {
			o.note("Image transferred and ledger updated")
		}
		return o
	}

	o.note("Error: Missing metadata, only image transferred")
	if o.Err == nil {
		o.Err = fmt.Errorf("%w: %s", ErrMetadataMissing, o.Asset)
		e.fault(o)
	}
	return o
}

func (e *Engine) recordExisting(b Batch, a manifest.Asset, o *Outcome) {
	if a.HasMetadata() {
		o.Recorded = b.Ledger.Record(b.CollectionID, o.Destination, a.Attributes())
		o.note("Already on destination - metadata added, image not re-uploaded")
		return
	}

	if b.Listing != nil {
		if entry, err := b.Listing.Lookup(a.RelativePath); err == nil {
			o.Recorded = b.Ledger.Record(b.CollectionID, o.Destination, entry.Attributes, entry.Species...)
			o.note("Updated image metadata from secondary listing")
			return
		}
	}

	o.Err = fmt.Errorf("%w: %s", ErrMetadataMissing, o.Asset)
	o.note("Error: Missing or invalid image metadata")
	e.fault(*o)
}

func (e *Engine) transfer(ctx context.Context, b Batch, o *Outcome) {
	o.note("Transferring from source to destination")
	o.note("  from '%s' to '%s:%s'", o.Source, o.Bucket, o.Destination)

	local, err := e.src.Fetch(ctx, o.Source, b.Scratch)
	if err != nil {
		o.State = TransferFailed
		o.Err = fmt.Errorf("%w: fetch %s: %w", ErrTransferFault, o.Source, err)
		o.note("Error: Transfer failed")
		e.fault(*o)
		return
	}
	defer os.Remove(local)

	if err := e.store.PutFile(ctx, b.Bucket, o.Destination, local, storage.ImageContentType(local)); err != nil {
		o.State = TransferFailed
		o.Err = fmt.Errorf("%w: upload %s: %w", ErrTransferFault, o.Destination, err)
		o.note("Error: Transfer failed")
		e.fault(*o)
		return
	}

	o.State = Transferred
	o.note("Image transferred")
}

func (e *Engine) fault(o Outcome) {
	level := slog.LevelError
	if errors.Is(o.Err, source.ErrNotFound) {
		level = slog.LevelWarn
	}
	e.logger.Log(context.Background(), level, "asset fault",
		"collection", o.Collection,
		"upload", o.Upload,
		"asset", o.Asset,
		"source", o.Source,
		"destination", o.Destination,
		"error", o.Err)
}

func (e *Engine) complete(ctx context.Context, o Outcome) {
	if e.audit != nil {
		if err := e.audit.Write(o); err != nil {
			e.logger.Error("audit log write failed", "asset", o.Asset, "error", err)
		}
	}
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, o); err != nil {
			e.logger.Warn("journal record failed", "asset", o.Asset, "error", err)
		}
	}
}
