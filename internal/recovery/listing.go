// Package recovery rebuilds ledger rows for assets whose primary metadata is
// missing, from loose per-upload metadata listings and from bundled upload archives.
package recovery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/JaimeStill/camxfer/pkg/source"
)

// Loose metadata files are named meta-<anything>.csv.
const (
	MetaPrefix = "meta-"
	MetaSuffix = ".csv"
)

// IsMetaFile reports whether name is a loose metadata listing.
func IsMetaFile(name string) bool {
	return strings.HasPrefix(name, MetaPrefix) && strings.HasSuffix(name, MetaSuffix)
}

// Entry is the metadata recovered for one asset.
type Entry struct {
	Attributes ledger.Attributes
	// Species holds every species entry when the line names more than one;
	// nil means the single species of Attributes applies.
	Species []ledger.Species
}

// Listing is the ordered concatenation of loose metadata lines.
type Listing struct {
	lines []string
}

// NewListing wraps raw metadata lines.
func NewListing(lines []string) *Listing {
	return &Listing{lines: lines}
}

// Len returns the number of lines.
func (l *Listing) Len() int { return len(l.lines) }

// Lookup parses the first line containing key anywhere.
func (l *Listing) Lookup(key string) (Entry, error) {
	for _, line := range l.lines {
		if strings.Contains(line, key) {
			return ParseLine(line), nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNoMetadata, key)
}

// LookupPrefix parses the first line starting with prefix.
func (l *Listing) LookupPrefix(prefix string) (Entry, error) {
	for _, line := range l.lines {
		if strings.HasPrefix(line, prefix) {
			return ParseLine(line), nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNoMetadata, prefix)
}

// ParseLine reads a metadata line as repeating key, value, unit triples that
// follow the leading asset path. A key repeated within the line keeps its
// last value in Attributes; repeated species keys start a new species entry.
func ParseLine(line string) Entry {
	parts := strings.Split(line, ",")
	attrs := make(ledger.Attributes)

	var species []ledger.Species
	var cur ledger.Species
	started := false

	for i := 1; i+1 < len(parts); i += 3 {
		key, value := parts[i], parts[i+1]
		attrs[key] = value

		switch key {
		case ledger.AttrCommonName:
			if started && cur.CommonName != "" {
				species = append(species, cur)
				cur = ledger.Species{}
			}
			cur.CommonName = value
			started = true
		case ledger.AttrScientificName:
			if started && cur.ScientificName != "" {
				species = append(species, cur)
				cur = ledger.Species{}
			}
			cur.ScientificName = value
			started = true
		case ledger.AttrSpeciesCount:
			cur.Count = value
		}
	}
	if started {
		species = append(species, cur)
	}

	e := Entry{Attributes: attrs}
	if len(species) > 1 {
		e.Species = species
	}
	return e
}

// LoadListing fetches every loose metadata file in the source folder dir into
// scratch and concatenates their lines in folder order. A missing folder
// yields an empty listing. Fetched files are removed once read.
func LoadListing(ctx context.Context, src source.System, dir, scratch string) (*Listing, error) {
	entries, err := src.List(ctx, dir)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return NewListing(nil), nil
		}
		return nil, fmt.Errorf("list metadata %s: %w", dir, err)
	}

	var lines []string
	for _, e := range entries {
		if e.IsDir || !IsMetaFile(e.Name) {
			continue
		}

		local, err := src.Fetch(ctx, path.Join(dir, e.Name), scratch)
		if err != nil {
			if errors.Is(err, source.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("fetch metadata %s: %w", e.Name, err)
		}

		read, err := readMetaFile(local)
		os.Remove(local)
		if err != nil {
			return nil, err
		}
		lines = append(lines, read...)
	}
	return NewListing(lines), nil
}

func readMetaFile(p string) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open metadata %s: %w", p, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", p, err)
	}
	return lines, nil
}
