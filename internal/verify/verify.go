// Package verify cross-checks ledger rows against the destination images.
// Mismatches are reported and never corrected.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/JaimeStill/camxfer/pkg/storage"
	"github.com/paulmach/orb"
)

// Kind classifies a finding.
type Kind string

const (
	MissingDeployment    Kind = "missing_deployment"
	InvalidCoordinates   Kind = "invalid_coordinates"
	MissingInteger       Kind = "missing_integer"
	LongitudeOutOfBounds Kind = "longitude_out_of_bounds"
	LatitudeOutOfBounds  Kind = "latitude_out_of_bounds"
	SpeciesMismatch      Kind = "species_mismatch"
	LocationMismatch     Kind = "location_mismatch"
	LocationMissing      Kind = "location_missing"
	ImageUnreadable      Kind = "image_unreadable"
	UnexpectedFolder     Kind = "unexpected_folder"
)

// Finding is one reported discrepancy.
type Finding struct {
	Kind   Kind
	Object string
	Detail string
}

func (f Finding) String() string {
	if f.Object == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", f.Kind, f.Object, f.Detail)
}

// CheckCoordinates validates the longitude and latitude of the first
// deployment row. The integer part of each must be non-zero and inside bound.
func CheckCoordinates(l *ledger.Ledger, bound orb.Bound) []Finding {
	lines := l.Deployments.Lines()
	if len(lines) == 0 || lines[0] == "" {
		return []Finding{{Kind: MissingDeployment, Detail: "no deployment rows"}}
	}

	row := lines[0]
	rawLon := ledger.Column(row, ledger.DeploymentLongitudeColumn)
	rawLat := ledger.Column(row, ledger.DeploymentLatitudeColumn)

	lon, errLon := strconv.ParseFloat(strings.TrimSpace(rawLon), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	if errLon != nil || errLat != nil {
		return []Finding{{Kind: InvalidCoordinates, Detail: fmt.Sprintf("%q %q", rawLon, rawLat)}}
	}

	p := orb.Point{math.Trunc(lon), math.Trunc(lat)}
	detail := fmt.Sprintf("%s %s", rawLon, rawLat)

	var findings []Finding
	if p.X() == 0 || p.Y() == 0 {
		findings = append(findings, Finding{Kind: MissingInteger, Detail: detail})
	}
	if p.X() < bound.Min.X() || p.X() > bound.Max.X() {
		findings = append(findings, Finding{Kind: LongitudeOutOfBounds, Detail: detail})
	}
	if p.Y() < bound.Min.Y() || p.Y() > bound.Max.Y() {
		findings = append(findings, Finding{Kind: LatitudeOutOfBounds, Detail: detail})
	}
	return findings
}

// MatchLocation reports whether some deployment row contains every location part.
func MatchLocation(l *ledger.Ledger, location []string) bool {
	for _, row := range l.Deployments.Lines() {
		matched := true
		for _, part := range location {
			if !strings.Contains(row, part) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// Verifier checks destination images of an upload against its ledger.
type Verifier struct {
	store  storage.System
	reader MetadataReader
	bound  orb.Bound
	logger *slog.Logger
}

// New creates a Verifier.
func New(store storage.System, reader MetadataReader, cfg *Config, logger *slog.Logger) *Verifier {
	return &Verifier{
		store:  store,
		reader: reader,
		bound:  cfg.Bound(),
		logger: logger.With("system", "verify"),
	}
}

// Upload verifies one destination upload folder. Coordinates are checked
// first; without deployment rows the images are not examined. Every image in
// each image folder is downloaded into scratch, read, and removed.
func (v *Verifier) Upload(ctx context.Context, bucket, uploadBase string, l *ledger.Ledger, scratch string) ([]Finding, error) {
	findings := CheckCoordinates(l, v.bound)
	for _, f := range findings {
		if f.Kind == MissingDeployment {
			return findings, nil
		}
	}

	folders, err := v.store.ListPrefix(ctx, bucket, withSlash(uploadBase))
	if err != nil {
		return findings, fmt.Errorf("list %s: %w", uploadBase, err)
	}

	for _, folder := range folders {
		if !folder.IsContainer {
			continue
		}

		images, err := v.store.ListPrefix(ctx, bucket, folder.Name)
		if err != nil {
			return findings, fmt.Errorf("list %s: %w", folder.Name, err)
		}

		for _, img := range images {
			if img.IsContainer {
				findings = append(findings, Finding{Kind: UnexpectedFolder, Object: img.Name})
				continue
			}
			found, err := v.image(ctx, bucket, img.Name, l, scratch)
			if err != nil {
				return findings, err
			}
			findings = append(findings, found...)
		}
	}

	for _, f := range findings {
		v.logger.Warn("verification finding", "bucket", bucket, "upload", uploadBase, "kind", f.Kind, "object", f.Object, "detail", f.Detail)
	}
	return findings, nil
}

func (v *Verifier) image(ctx context.Context, bucket, name string, l *ledger.Ledger, scratch string) ([]Finding, error) {
	local := filepath.Join(scratch, path.Base(name))
	if err := v.store.Get(ctx, bucket, name, local); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []Finding{{Kind: ImageUnreadable, Object: name, Detail: "object vanished"}}, nil
		}
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	defer os.Remove(local)

	dump, err := v.reader.Read(ctx, local)
	if err != nil {
		return []Finding{{Kind: ImageUnreadable, Object: name, Detail: err.Error()}}, nil
	}
	info := ParseDump(dump)

	var findings []Finding
	if recorded := l.Observations.Count(name); recorded != len(info.Species) {
		findings = append(findings, Finding{
			Kind:   SpeciesMismatch,
			Object: name,
			Detail: fmt.Sprintf("ledger %d, image %d", recorded, len(info.Species)),
		})
	}

	switch {
	case len(info.Location) == 0:
		findings = append(findings, Finding{Kind: LocationMissing, Object: name})
	case !MatchLocation(l, info.Location):
		findings = append(findings, Finding{
			Kind:   LocationMismatch,
			Object: name,
			Detail: strings.Join(info.Location, " "),
		})
	}
	return findings, nil
}

func withSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
