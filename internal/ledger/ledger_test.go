package ledger_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/camxfer/internal/ledger"
)

func raptor() ledger.Attributes {
	return ledger.Attributes{
		ledger.AttrLocationID:        "L1",
		ledger.AttrLocationName:      "Ridge",
		ledger.AttrLocationLongitude: "-110.9",
		ledger.AttrLocationLatitude:  "32.2",
		ledger.AttrLocationElevation: "1200",
		ledger.AttrDateTimeTaken:     "1577872800000",
		ledger.AttrCommonName:        "Raptor",
		ledger.AttrSpeciesCount:      "1",
	}
}

func TestRecordScenario(t *testing.T) {
	l := ledger.New(ledger.MatchLegacy)

	if !l.Record("C1", "img/0001.jpg", raptor()) {
		t.Fatal("record should change an empty ledger")
	}
	if !l.Dirty() {
		t.Error("ledger should be dirty after record")
	}

	depl := l.Deployments.Lines()
	if len(depl) != 1 || !strings.HasPrefix(depl[0], "C1:L1,") {
		t.Errorf("deployments: got %v, want one row starting C1:L1,", depl)
	}

	media := l.Media.Lines()
	if len(media) != 1 || !strings.HasPrefix(media[0], "img/0001.jpg,C1:L1,") {
		t.Fatalf("media: got %v, want one row starting img/0001.jpg,C1:L1,", media)
	}
	if !strings.Contains(media[0], ",image/jpg,") {
		t.Errorf("media row %q missing image/jpg", media[0])
	}

	obs := l.Observations.Lines()
	if len(obs) != 1 {
		t.Fatalf("observations: got %d rows, want 1", len(obs))
	}
	if !strings.Contains(obs[0], ",img/0001.jpg,") {
		t.Errorf("observation %q missing asset path", obs[0])
	}
	if !strings.HasSuffix(obs[0], "[COMMONNAME:Raptor]") {
		t.Errorf("observation %q missing common name tag", obs[0])
	}
	if got := ledger.Column(obs[0], ledger.ObservationSpeciesColumn); got != "Raptor" {
		t.Errorf("species: got %s, want Raptor", got)
	}
	if got := ledger.Column(obs[0], 4); got != "2020-01-01T10:00:00" {
		t.Errorf("timestamp: got %s, want 2020-01-01T10:00:00", got)
	}
}

func TestRecordPrefersScientificName(t *testing.T) {
	attrs := raptor()
	attrs[ledger.AttrScientificName] = "Falconiformes"

	l := ledger.New(ledger.MatchLegacy)
	l.Record("C1", "img/0001.jpg", attrs)

	obs := l.Observations.Lines()[0]
	if got := ledger.Column(obs, ledger.ObservationSpeciesColumn); got != "Falconiformes" {
		t.Errorf("species: got %s, want Falconiformes", got)
	}
	if !strings.HasSuffix(obs, "[COMMONNAME:Raptor]") {
		t.Errorf("observation %q should keep the common name tag", obs)
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	l := ledger.New(ledger.MatchLegacy)
	l.Record("C1", "img/0001.jpg", raptor())
	if err := ledger.Save(l, dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := ledger.Load(dir, ledger.MatchLegacy)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Record("C1", "img/0001.jpg", raptor()) {
		t.Error("re-recording the same asset should change nothing")
	}
	if reloaded.Dirty() {
		t.Error("ledger should not be dirty")
	}
}

func TestDeploymentCollapsing(t *testing.T) {
	l := ledger.New(ledger.MatchLegacy)

	first := raptor()
	second := raptor()
	second[ledger.AttrLocationName] = "Renamed"

	l.Record("C1", "img/0001.jpg", first)
	l.Record("C1", "img/0002.jpg", second)

	depl := l.Deployments.Lines()
	if len(depl) != 1 {
		t.Fatalf("deployments: got %d rows, want 1", len(depl))
	}
	if got := ledger.Column(depl[0], 2); got != "Ridge" {
		t.Errorf("location name: got %s, want first writer's Ridge", got)
	}
	if l.Media.Len() != 2 || l.Observations.Len() != 2 {
		t.Errorf("media/observations: got %d/%d, want 2/2", l.Media.Len(), l.Observations.Len())
	}
}

func TestRecordMultiSpecies(t *testing.T) {
	l := ledger.New(ledger.MatchLegacy)
	species := []ledger.Species{
		{CommonName: "Deer", ScientificName: "Odocoileus", Count: "2"},
		{CommonName: "Coyote", Count: "1"},
	}

	l.Record("C1", "img/0003.jpg", raptor(), species...)
	if got := l.Observations.Count("img/0003.jpg"); got != 2 {
		t.Fatalf("observations: got %d, want 2", got)
	}
	if l.Record("C1", "img/0003.jpg", raptor(), species...) {
		t.Error("re-recording multi-species asset should change nothing")
	}
}

func TestLegacyPrefixCollision(t *testing.T) {
	lines := []string{"img/0001.jpg.bak,C1:L1,img/0001.jpg.bak,,,img/0001.jpg.bak,0001.jpg.bak,image/jpg,,false,"}

	legacy := ledger.NewTable(ledger.MediaTable, ledger.MatchLegacy, lines)
	if !legacy.Contains("img/0001.jpg") {
		t.Error("legacy matching should treat a path prefix as a match")
	}

	exact := ledger.NewTable(ledger.MediaTable, ledger.MatchExact, lines)
	if exact.Contains("img/0001.jpg") {
		t.Error("exact matching should not match a path prefix")
	}
	if !exact.Contains("img/0001.jpg.bak") {
		t.Error("exact matching should match the full identity")
	}
}

func TestObservationSubstringMatch(t *testing.T) {
	obs := ledger.NewTable(ledger.Observations, ledger.MatchLegacy, []string{
		",C1:L1,,up/img/0001.jpg,2020-01-01T00:00:00,,false,,Raptor,1,0,,,,,,,,1.0,[COMMONNAME:Raptor]",
	})

	if obs.Find("img/0001.jpg") != 0 {
		t.Error("observation lookup should match the path anywhere in the row")
	}

	exact := ledger.NewTable(ledger.Observations, ledger.MatchExact, obs.Lines())
	if exact.Find("up/img/0001.jpg") != 0 {
		t.Error("exact observation lookup should use the media column")
	}
	if exact.Find("img/0001.jpg") != -1 {
		t.Error("exact observation lookup should not match a partial path")
	}
}

func TestTableSetReindexes(t *testing.T) {
	tbl := ledger.NewTable(ledger.Deployments, ledger.MatchExact, []string{"old:L1,L1,Ridge"})

	if !tbl.Set(0, "new:L1,L1,Ridge") {
		t.Fatal("set should report a change")
	}
	if tbl.Contains("old:L1") || !tbl.Contains("new:L1") {
		t.Errorf("index not updated: rows %v", tbl.Lines())
	}
	if tbl.Set(0, "new:L1,L1,Ridge") {
		t.Error("setting identical text should be a no-op")
	}
}

func TestLoadMissingFiles(t *testing.T) {
	l, err := ledger.Load(t.TempDir(), ledger.MatchLegacy)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, tbl := range l.Tables() {
		if tbl.Len() != 0 {
			t.Errorf("%s: got %d rows, want 0", tbl.Kind(), tbl.Len())
		}
	}
}

func TestLoadUnreadable(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ledger.MediaFile), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := ledger.Load(dir, ledger.MatchLegacy)
	if !errors.Is(err, ledger.ErrUnreadable) {
		t.Errorf("load: got %v, want %v", err, ledger.ErrUnreadable)
	}
}

func TestSavePreservesOrder(t *testing.T) {
	dir := t.TempDir()
	content := "b,2\na,1\n\"c,d\",3\n"
	if err := os.WriteFile(filepath.Join(dir, ledger.DeploymentsFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := ledger.Load(dir, ledger.MatchLegacy)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	out := t.TempDir()
	if err := ledger.Save(l, out); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, ledger.DeploymentsFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("round trip: got %q, want %q", data, content)
	}
}
