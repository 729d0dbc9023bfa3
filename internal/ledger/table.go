package ledger

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies one of the three ledger tables.
type Kind int

const (
	Deployments Kind = iota
	MediaTable
	Observations
)

func (k Kind) String() string {
	switch k {
	case Deployments:
		return "deployments"
	case MediaTable:
		return "media"
	case Observations:
		return "observations"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// keyColumn is the column holding a row's identity.
func (k Kind) keyColumn() int {
	if k == Observations {
		return ObservationMediaColumn
	}
	return 0
}

// MatchMode selects how rows are matched against an identity.
type MatchMode int

const (
	// MatchLegacy matches deployment and media rows whose text starts with
	// the identity, and observation rows whose text contains it anywhere.
	// A path that is a proper prefix of another path therefore collides.
	MatchLegacy MatchMode = iota
	// MatchExact matches rows whose identity column equals the identity,
	// using the table index.
	MatchExact
)

// ParseMatchMode parses "legacy" or "exact".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(s) {
	case "", "legacy":
		return MatchLegacy, nil
	case "exact":
		return MatchExact, nil
	default:
		return MatchLegacy, fmt.Errorf("unknown matching mode %q", s)
	}
}

// Row is one ledger line and the identity parsed from it.
type Row struct {
	Key  string
	Text string
}

// Table is an ordered sequence of rows of one kind with an identity index.
type Table struct {
	kind    Kind
	mode    MatchMode
	rows    []Row
	index   map[string][]int
	changed bool
}

// NewTable creates a table holding the given raw row texts.
func NewTable(kind Kind, mode MatchMode, lines []string) *Table {
	t := &Table{
		kind:  kind,
		mode:  mode,
		rows:  make([]Row, 0, len(lines)),
		index: make(map[string][]int),
	}
	for _, line := range lines {
		t.push(line)
	}
	return t
}

// Kind returns the table kind.
func (t *Table) Kind() Kind { return t.kind }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Changed reports whether the table was mutated since it was built.
func (t *Table) Changed() bool { return t.changed }

// Rows returns a copy of the rows in insertion order.
func (t *Table) Rows() []Row { return slices.Clone(t.rows) }

// Lines returns the row texts in insertion order.
func (t *Table) Lines() []string {
	lines := make([]string, len(t.rows))
	for i, r := range t.rows {
		lines[i] = r.Text
	}
	return lines
}

// Find returns the position of the first row matching key, or -1.
func (t *Table) Find(key string) int {
	if t.mode == MatchExact {
		if positions := t.index[key]; len(positions) > 0 {
			return positions[0]
		}
		return -1
	}

	for i, r := range t.rows {
		if t.legacyMatch(r.Text, key) {
			return i
		}
	}
	return -1
}

// Count returns the number of rows matching key.
func (t *Table) Count(key string) int {
	if t.mode == MatchExact {
		return len(t.index[key])
	}

	n := 0
	for _, r := range t.rows {
		if t.legacyMatch(r.Text, key) {
			n++
		}
	}
	return n
}

// Contains reports whether any row matches key.
func (t *Table) Contains(key string) bool {
	return t.Find(key) >= 0
}

// Insert appends rec unless a row already matches its identity. The first
// writer wins: an existing row is never replaced by later values.
func (t *Table) Insert(rec Record) bool {
	if t.Contains(rec.Key()) {
		return false
	}
	t.push(JoinFields(rec.Values()))
	t.changed = true
	return true
}

// InsertAll appends every record unless a row already matches the identity
// of the first one. Used for multi-species observations of one asset.
func (t *Table) InsertAll(recs []Record) bool {
	if len(recs) == 0 || t.Contains(recs[0].Key()) {
		return false
	}
	for _, rec := range recs {
		t.push(JoinFields(rec.Values()))
	}
	t.changed = true
	return true
}

// Set replaces the text of the row at i. Setting identical text is a no-op.
func (t *Table) Set(i int, text string) bool {
	if t.rows[i].Text == text {
		return false
	}

	old := t.rows[i].Key
	t.unindex(old, i)

	key := Column(text, t.kind.keyColumn())
	t.rows[i] = Row{Key: key, Text: text}
	t.index[key] = insertSorted(t.index[key], i)
	t.changed = true
	return true
}

func (t *Table) push(line string) {
	key := Column(line, t.kind.keyColumn())
	t.index[key] = append(t.index[key], len(t.rows))
	t.rows = append(t.rows, Row{Key: key, Text: line})
}

func (t *Table) unindex(key string, i int) {
	positions := t.index[key]
	if j := slices.Index(positions, i); j >= 0 {
		positions = slices.Delete(positions, j, j+1)
	}
	if len(positions) == 0 {
		delete(t.index, key)
		return
	}
	t.index[key] = positions
}

func (t *Table) legacyMatch(text, key string) bool {
	if t.kind == Observations {
		return strings.Contains(text, key)
	}
	return strings.HasPrefix(text, key)
}

func insertSorted(positions []int, i int) []int {
	j, _ := slices.BinarySearch(positions, i)
	return slices.Insert(positions, j, i)
}
