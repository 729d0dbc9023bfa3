package recovery_test

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/JaimeStill/camxfer/internal/recovery"
	"github.com/JaimeStill/camxfer/pkg/source"
	"github.com/JaimeStill/camxfer/pkg/storage/storagetest"
)

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func writeTar(t *testing.T, p string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tw := tar.NewWriter(f)
	for name, data := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
}

type fixture struct {
	root    string
	store   *storagetest.Memory
	target  recovery.Target
	scratch string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	uploads := filepath.Join(root, "Uploads")
	if err := os.MkdirAll(uploads, 0o755); err != nil {
		t.Fatal(err)
	}

	writeTar(t, filepath.Join(uploads, "batch1-part1.tar"), map[string][]byte{
		"meta-1.csv": []byte(
			"cam1/0001.jpg,locationID,L1,,metaSpeciesCommonName,Raptor,\n" +
				"cam1/sub/0002.jpg,locationID,L1,,metaSpeciesCommonName,Deer,\n"),
		"cam1/0001.jpg":     jpeg,
		"cam1/sub/0002.jpg": jpeg,
		"cam1/0003.jpg":     jpeg,
	})
	writeTar(t, filepath.Join(uploads, "other-part1.tar"), map[string][]byte{
		"meta-1.csv":    []byte("cam9/0009.jpg,locationID,L9,\n"),
		"cam9/0009.jpg": jpeg,
	})
	if err := os.WriteFile(filepath.Join(uploads, "batch1-bad.tar"), make([]byte, 1024), 0o644); err != nil {
		t.Fatal(err)
	}

	store := storagetest.NewMemory()
	store.CreateBucket(context.Background(), "sparcd-C1")

	return fixture{
		root:  root,
		store: store,
		target: recovery.Target{
			CollectionID: "C1",
			Bucket:       "sparcd-C1",
			DestBase:     "Collections/C1/Uploads/batch1",
			SourceDir:    "Uploads",
			Upload:       "batch1",
		},
		scratch: t.TempDir(),
	}
}

func TestArchives(t *testing.T) {
	fx := newFixture(t)
	existing := "Collections/C1/Uploads/batch1/cam1/0001.jpg"
	fx.store.Seed(fx.target.Bucket, existing, jpeg, "image/jpeg")

	r := recovery.New(fx.store, source.NewLocal(fx.root, discard()), discard())
	l := ledger.New(ledger.MatchLegacy)

	rep, err := r.Archives(context.Background(), fx.target, l, fx.scratch)
	if err != nil {
		t.Fatalf("archives: %v", err)
	}

	if rep.Archives != 2 {
		t.Errorf("archives: got %d, want 2", rep.Archives)
	}
	if rep.Failed != 1 {
		t.Errorf("failed: got %d, want 1", rep.Failed)
	}
	if rep.Uploaded != 1 {
		t.Errorf("uploaded: got %d, want 1", rep.Uploaded)
	}
	if rep.Recorded != 2 {
		t.Errorf("recorded: got %d, want 2", rep.Recorded)
	}
	if rep.Missing != 1 {
		t.Errorf("missing: got %d, want 1", rep.Missing)
	}

	puts := fx.store.Puts()
	want := "sparcd-C1:Collections/C1/Uploads/batch1/cam1/sub/0002.jpg"
	if len(puts) != 1 || puts[0] != want {
		t.Errorf("puts: got %v, want [%s]", puts, want)
	}
	if !l.HasMedia(existing) {
		t.Error("existing image should gain ledger rows")
	}
	if l.Deployments.Len() != 1 {
		t.Errorf("deployments: got %d, want 1", l.Deployments.Len())
	}

	left, err := os.ReadDir(fx.scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("scratch: got %d leftover entries, want 0", len(left))
	}
}

func TestArchivesSkipsRecordedImages(t *testing.T) {
	fx := newFixture(t)
	existing := "Collections/C1/Uploads/batch1/cam1/0001.jpg"
	fx.store.Seed(fx.target.Bucket, existing, jpeg, "image/jpeg")

	l := ledger.New(ledger.MatchLegacy)
	l.Record("C1", existing, ledger.Attributes{
		ledger.AttrLocationID: "L7",
		ledger.AttrCommonName: "Raptor",
	})

	r := recovery.New(fx.store, source.NewLocal(fx.root, discard()), discard())
	rep, err := r.Archives(context.Background(), fx.target, l, fx.scratch)
	if err != nil {
		t.Fatalf("archives: %v", err)
	}

	if rep.Recorded != 1 {
		t.Errorf("recorded: got %d, want 1", rep.Recorded)
	}
	if got := l.Media.Count(existing); got != 1 {
		t.Errorf("media rows for recorded image: got %d, want 1", got)
	}
	if got := l.Observations.Count(existing); got != 1 {
		t.Errorf("observation rows for recorded image: got %d, want 1", got)
	}

	for _, row := range l.Deployments.Lines() {
		if id := ledger.Column(row, 0); id != "C1:L7" && id != "C1:L1" {
			t.Errorf("deployment: got %s, want C1:L7 or C1:L1", id)
		}
	}
	if l.Deployments.Len() != 2 {
		t.Errorf("deployments: got %d, want 2", l.Deployments.Len())
	}
}

func TestArchivesIdempotent(t *testing.T) {
	fx := newFixture(t)
	r := recovery.New(fx.store, source.NewLocal(fx.root, discard()), discard())
	l := ledger.New(ledger.MatchLegacy)

	if _, err := r.Archives(context.Background(), fx.target, l, fx.scratch); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	uploads := len(fx.store.Puts())

	rep, err := r.Archives(context.Background(), fx.target, l, fx.scratch)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if rep.Recorded != 0 || rep.Uploaded != 0 {
		t.Errorf("second pass: recorded %d uploaded %d, want 0/0", rep.Recorded, rep.Uploaded)
	}
	if got := len(fx.store.Puts()); got != uploads {
		t.Errorf("puts: got %d, want %d", got, uploads)
	}
}

func TestArchivesMissingFolder(t *testing.T) {
	fx := newFixture(t)
	fx.target.SourceDir = "Nowhere"

	r := recovery.New(fx.store, source.NewLocal(fx.root, discard()), discard())
	rep, err := r.Archives(context.Background(), fx.target, ledger.New(ledger.MatchLegacy), fx.scratch)
	if err != nil {
		t.Fatalf("archives: %v", err)
	}
	if rep.Archives != 0 {
		t.Errorf("archives: got %d, want 0", rep.Archives)
	}
}
