package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Fixed ledger file names within an upload folder.
const (
	DeploymentsFile  = "deployments.csv"
	MediaFile        = "media.csv"
	ObservationsFile = "observations.csv"
)

// ContentType is the media type ledger files are stored with.
const ContentType = "text/csv"

// ErrUnreadable indicates an existing ledger file could not be read.
var ErrUnreadable = errors.New("ledger file unreadable")

// Files returns the ledger file names in table order.
func Files() []string {
	return []string{DeploymentsFile, MediaFile, ObservationsFile}
}

// Load reads the ledger files in folder. A missing file yields an empty table;
// an existing file that cannot be read is an error.
func Load(folder string, mode MatchMode) (*Ledger, error) {
	kinds := []Kind{Deployments, MediaTable, Observations}
	tables := make([]*Table, len(kinds))

	for i, name := range Files() {
		lines, err := readLines(filepath.Join(folder, name))
		if err != nil {
			return nil, err
		}
		tables[i] = NewTable(kinds[i], mode, lines)
	}

	return &Ledger{
		Deployments:  tables[0],
		Media:        tables[1],
		Observations: tables[2],
	}, nil
}

// Save writes every table to folder as newline-terminated rows in table order.
func Save(l *Ledger, folder string) error {
	for i, t := range l.Tables() {
		name := Files()[i]
		if err := writeLines(filepath.Join(folder, name), t.Lines()); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	return lines, nil
}

func writeLines(path string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
