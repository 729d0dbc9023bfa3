package storagetest_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/camxfer/pkg/storage"
	"github.com/JaimeStill/camxfer/pkg/storage/storagetest"
)

func TestListPrefixFoldsFolders(t *testing.T) {
	m := storagetest.NewMemory()
	m.Seed("b", "Collections/c1/Uploads/u1/media.csv", nil, "text/csv")
	m.Seed("b", "Collections/c1/Uploads/u1/img/a.jpg", nil, "image/jpeg")
	m.Seed("b", "Collections/c1/Uploads/u2/media.csv", nil, "text/csv")
	m.Seed("b", "Collections/c1/collection.json", nil, "application/json")

	got, err := m.ListPrefix(context.Background(), "b", "Collections/c1/Uploads/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []storage.Object{
		{Name: "Collections/c1/Uploads/u1/", IsContainer: true},
		{Name: "Collections/c1/Uploads/u2/", IsContainer: true},
	}
	if len(got) != len(want) {
		t.Fatalf("objects: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("object %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGetMissing(t *testing.T) {
	m := storagetest.NewMemory()
	m.Seed("b", "x", []byte("1"), "text/plain")

	err := m.Get(context.Background(), "b", "y", filepath.Join(t.TempDir(), "y"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("get missing: got %v, want %v", err, storage.ErrNotFound)
	}
}

func TestPutRecordsUploads(t *testing.T) {
	m := storagetest.NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, "b", "k", strings.NewReader("data"), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	if got := m.Puts(); len(got) != 1 || got[0] != "b:k" {
		t.Errorf("puts: got %v, want [b:k]", got)
	}
	if ok, _ := m.Exists(ctx, "b", "k"); !ok {
		t.Error("object should exist after put")
	}
}

func TestSanitizedUploadKeys(t *testing.T) {
	m := storagetest.NewMemory()
	ctx := context.Background()
	key := "Collections/C1/Uploads/cam.2021..06/media.csv"

	if err := m.Put(ctx, "b", key, strings.NewReader("row\n"), "text/csv"); err != nil {
		t.Fatalf("put: %v", err)
	}
	exists, err := m.Exists(ctx, "b", key)
	if err != nil || !exists {
		t.Errorf("exists: got %v, %v, want true, nil", exists, err)
	}
	if err := m.Get(ctx, "b", key, filepath.Join(t.TempDir(), "media.csv")); err != nil {
		t.Errorf("get: %v", err)
	}

	err = m.Put(ctx, "b", "Collections/../media.csv", strings.NewReader(""), "text/csv")
	if !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("put parent segment: got %v, want %v", err, storage.ErrInvalidKey)
	}
}
