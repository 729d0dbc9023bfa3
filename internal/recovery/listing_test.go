package recovery_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/JaimeStill/camxfer/internal/recovery"
	"github.com/JaimeStill/camxfer/pkg/source"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseLine(t *testing.T) {
	e := recovery.ParseLine("img/0001.jpg,locationID,L1,,metaSpeciesCommonName,Raptor,,metaSpeciesCount,2,")

	want := ledger.Attributes{
		ledger.AttrLocationID:   "L1",
		ledger.AttrCommonName:   "Raptor",
		ledger.AttrSpeciesCount: "2",
	}
	if len(e.Attributes) != len(want) {
		t.Fatalf("attributes: got %v, want %v", e.Attributes, want)
	}
	for k, v := range want {
		if e.Attributes[k] != v {
			t.Errorf("%s: got %s, want %s", k, e.Attributes[k], v)
		}
	}
	if e.Species != nil {
		t.Errorf("species: got %v, want nil for a single species", e.Species)
	}
}

func TestParseLineMultiSpecies(t *testing.T) {
	e := recovery.ParseLine("a.jpg," +
		"metaSpeciesCommonName,Deer,,speciesScientificName,Odocoileus,,metaSpeciesCount,2,," +
		"metaSpeciesCommonName,Coyote,,speciesScientificName,Canis latrans,,metaSpeciesCount,1,")

	if len(e.Species) != 2 {
		t.Fatalf("species: got %d, want 2", len(e.Species))
	}
	if e.Species[0].Name() != "Odocoileus" || e.Species[0].Count != "2" {
		t.Errorf("first species: got %+v", e.Species[0])
	}
	if e.Species[1].Name() != "Canis latrans" || e.Species[1].Count != "1" {
		t.Errorf("second species: got %+v", e.Species[1])
	}
}

func TestParseLineOddFields(t *testing.T) {
	e := recovery.ParseLine("a.jpg,locationID,L1,,dangling")
	if e.Attributes[ledger.AttrLocationID] != "L1" {
		t.Errorf("locationID: got %s, want L1", e.Attributes[ledger.AttrLocationID])
	}
	if _, ok := e.Attributes["dangling"]; ok {
		t.Error("a key without a value should be ignored")
	}
}

func TestListingLookup(t *testing.T) {
	l := recovery.NewListing([]string{
		"cam1/img/0001.jpg,locationID,L1,",
		"cam1/img/0002.jpg,locationID,L2,",
	})

	e, err := l.Lookup("img/0002.jpg")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if e.Attributes[ledger.AttrLocationID] != "L2" {
		t.Errorf("locationID: got %s, want L2", e.Attributes[ledger.AttrLocationID])
	}

	if _, err := l.LookupPrefix("img/0002.jpg"); !errors.Is(err, recovery.ErrNoMetadata) {
		t.Errorf("prefix lookup: got %v, want %v", err, recovery.ErrNoMetadata)
	}
	if _, err := l.LookupPrefix("cam1/img/0001.jpg"); err != nil {
		t.Errorf("prefix lookup: %v", err)
	}
}

func TestLoadListing(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Uploads", "batch1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"meta-1.csv":      "a.jpg,locationID,L1,\r\n",
		"meta-2.csv":      "b.jpg,locationID,L2,\n",
		"UploadMeta.json": "{}",
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src := source.NewLocal(root, discard())
	scratch := t.TempDir()

	l, err := recovery.LoadListing(context.Background(), src, "Uploads/batch1", scratch)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Len() != 2 {
		t.Errorf("lines: got %d, want 2", l.Len())
	}

	e, err := l.Lookup("a.jpg")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if e.Attributes[ledger.AttrLocationID] != "L1" {
		t.Errorf("locationID: got %q, want L1", e.Attributes[ledger.AttrLocationID])
	}

	left, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("scratch: got %d leftover files, want 0", len(left))
	}
}

func TestLoadListingMissingFolder(t *testing.T) {
	src := source.NewLocal(t.TempDir(), discard())

	l, err := recovery.LoadListing(context.Background(), src, "Uploads/none", t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("lines: got %d, want 0", l.Len())
	}
}
