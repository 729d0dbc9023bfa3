package verify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/JaimeStill/camxfer/internal/ledger"
)

// Tag names under which the image species and location are embedded.
const (
	SpeciesTag  = "Exif_0x0228"
	LocationTag = "Exif_0x0229"
)

// MetadataReader dumps the embedded metadata of a local image.
type MetadataReader interface {
	Read(ctx context.Context, localPath string) (string, error)
}

// ExifTool reads metadata by running exiftool in verbose hex-dump mode.
type ExifTool struct {
	Path string
}

func (x ExifTool) Read(ctx context.Context, localPath string) (string, error) {
	out, err := exec.CommandContext(ctx, x.Path, "-U", "-v3", localPath).Output()
	if err != nil {
		return "", fmt.Errorf("run %s: %w", x.Path, err)
	}
	return string(out), nil
}

// ImageInfo is the species and location embedded in an image.
type ImageInfo struct {
	Species  []ledger.Species
	Location []string
}

// ParseDump extracts the species and location tags from a verbose dump. The
// tag line and the descriptor line after it are skipped; the bracketed
// printable text of the following hex lines is concatenated.
func ParseDump(dump string) ImageInfo {
	var species, location strings.Builder
	var cur *strings.Builder
	skip := 0

	for _, line := range strings.Split(dump, "\n") {
		if skip > 0 {
			skip--
			continue
		}
		switch {
		case strings.Contains(line, SpeciesTag):
			cur, skip = &species, 1
			continue
		case strings.Contains(line, LocationTag):
			cur, skip = &location, 1
			continue
		}
		if cur == nil {
			continue
		}

		i := strings.IndexByte(line, '[')
		if i < 0 {
			cur = nil
			continue
		}
		cur.WriteString(strings.TrimRight(strings.TrimRight(line[i+1:], "\r"), "]"))
	}

	var info ImageInfo
	for _, entry := range SplitSpecies(species.String()) {
		parts := strings.Split(entry, ",")
		if len(parts) != 3 {
			continue
		}
		info.Species = append(info.Species, ledger.Species{
			CommonName:     strings.TrimSpace(parts[0]),
			ScientificName: strings.TrimSpace(parts[1]),
			Count:          strings.TrimSpace(parts[2]),
		})
	}

	if loc := strings.TrimRight(location.String(), "."); loc != "" {
		parts := strings.Split(loc, ".")
		info.Location = []string{parts[0], parts[len(parts)-1]}
	}
	return info
}

// SplitSpecies splits the embedded species text into "common, scientific,
// count" entries. Each entry ends at the first dot after its second comma;
// that dot opens a three character separator before the next entry.
func SplitSpecies(s string) []string {
	var entries []string
	start, pos := 0, 0

	for {
		c := strings.IndexByte(s[pos:], ',')
		if c < 0 {
			break
		}
		pos += c + 1

		c = strings.IndexByte(s[pos:], ',')
		if c < 0 {
			break
		}
		pos += c + 1

		d := strings.IndexByte(s[pos:], '.')
		if d < 0 {
			break
		}
		end := pos + d
		pos = end + 1

		if start <= end {
			entries = append(entries, s[start:end])
		}
		start = pos + 2
		if start > len(s) {
			break
		}
	}
	return entries
}
