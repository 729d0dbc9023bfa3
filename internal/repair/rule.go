// Package repair corrects historically malformed ledger rows with ordered,
// idempotent field substitutions.
package repair

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/pelletier/go-toml/v2"
)

// Rule replaces every field whose value equals Needle with Replacement.
// A field of the form "Needle:suffix" keeps its suffix, so composite
// deployment identities are repaired too. When Guard is set the rule only
// touches rows containing Guard anywhere in their text.
type Rule struct {
	Needle      string `toml:"needle"`
	Replacement string `toml:"replacement"`
	Guard       string `toml:"guard"`
}

func (r Rule) String() string {
	if r.Guard != "" {
		return fmt.Sprintf("%s -> %s (guard %s)", r.Needle, r.Replacement, r.Guard)
	}
	return fmt.Sprintf("%s -> %s", r.Needle, r.Replacement)
}

// Validate reports whether the rule can be applied.
func (r Rule) Validate() error {
	if r.Needle == "" {
		return fmt.Errorf("%w: needle is required", ErrInvalidRule)
	}
	if strings.HasPrefix(r.Replacement, r.Needle+":") {
		return fmt.Errorf("%w: replacement %q re-matches needle %q", ErrInvalidRule, r.Replacement, r.Needle)
	}
	return nil
}

// ValidateRules validates each rule and rejects any rule that writes a value
// an earlier rule in the list would match again, since the list would then
// keep changing rows on every pass.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
		for j, earlier := range rules[:i] {
			if r.Replacement != r.Needle && rematches(r.Replacement, earlier.Needle) {
				return fmt.Errorf("%w: rule %d: replacement %q re-matches needle of rule %d", ErrInvalidRule, i+1, r.Replacement, j+1)
			}
		}
	}
	return nil
}

// rematches reports whether a field written with replacement, bare or with a
// ":suffix", can be matched again by needle.
func rematches(replacement, needle string) bool {
	return replacement == needle ||
		strings.HasPrefix(replacement, needle+":") ||
		strings.HasPrefix(needle, replacement+":")
}

// Apply returns row with the rule applied and whether anything changed.
// The row count of a table is never affected; only field content is.
func (r Rule) Apply(row string) (string, bool) {
	if r.Needle == r.Replacement {
		return row, false
	}
	if r.Guard != "" && !strings.Contains(row, r.Guard) {
		return row, false
	}

	prefix := r.Needle + ":"
	fields := ledger.SplitFields(row)
	changed := false

	// Rewrite from the last field back so earlier offsets stay valid.
	for i := len(fields) - 1; i >= 0; i-- {
		f := fields[i]
		switch {
		case f.Value == r.Needle:
			row = ledger.ReplaceField(row, f, r.Replacement)
			changed = true
		case strings.HasPrefix(f.Value, prefix):
			row = ledger.ReplaceField(row, f, r.Replacement+":"+f.Value[len(prefix):])
			changed = true
		}
	}
	return row, changed
}

// ApplyTable applies rule to every row of t and reports whether any row changed.
func ApplyTable(t *ledger.Table, rule Rule) bool {
	changed := false
	for i, row := range t.Rows() {
		if text, ok := rule.Apply(row.Text); ok {
			changed = t.Set(i, text) || changed
		}
	}
	return changed
}

// ApplyAll applies rules in order across all three tables of l and reports
// whether any row changed. Applying the same rules twice changes nothing the
// second time.
func ApplyAll(l *ledger.Ledger, rules []Rule) bool {
	changed := false
	for _, rule := range rules {
		for _, t := range l.Tables() {
			changed = ApplyTable(t, rule) || changed
		}
	}
	return changed
}

// DefaultRules returns the historical species repairs: Unknown species
// recorded for raptors and snakes, then snakes that were first repaired
// to Falconiformes.
func DefaultRules() []Rule {
	return []Rule{
		{Guard: ledger.CommonNameTag("Raptor"), Needle: "Unknown", Replacement: "Falconiformes"},
		{Guard: ledger.CommonNameTag("Snake"), Needle: "Unknown", Replacement: "Serpentes"},
		{Guard: ledger.CommonNameTag("snake"), Needle: "Unknown", Replacement: "Serpentes"},
		{Guard: ledger.CommonNameTag("Snake"), Needle: "Falconiformes", Replacement: "Serpentes"},
		{Guard: ledger.CommonNameTag("snake"), Needle: "Falconiformes", Replacement: "Serpentes"},
	}
}

type ruleFile struct {
	Rules []Rule `toml:"rule"`
}

// LoadRules reads an ordered rule list from a TOML file of [[rule]] tables.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a TOML rule list.
func ParseRules(data []byte) ([]Rule, error) {
	var rf ruleFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if err := ValidateRules(rf.Rules); err != nil {
		return nil, err
	}
	return rf.Rules, nil
}
