// Package storagetest provides an in-memory storage.System for tests.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/JaimeStill/camxfer/pkg/storage"
)

// Object is a stored object and the content type it was uploaded with.
type Object struct {
	Data        []byte
	ContentType string
}

// Memory is an in-memory storage.System. It records every upload so tests can
// assert on write counts.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]map[string]Object
	puts    []string

	// ExistsErr, when set, is returned by every Exists call.
	ExistsErr error
	// PutErr, when set, is returned by every Put and PutFile call.
	PutErr error
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]map[string]Object)}
}

// Seed stores an object directly without counting it as an upload.
func (m *Memory) Seed(bucket, key string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(bucket)[key] = Object{Data: data, ContentType: contentType}
}

// Object returns the stored object at key.
func (m *Memory) Object(bucket, key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.buckets[bucket][key]
	return o, ok
}

// Puts returns the "bucket:key" of every upload in call order.
func (m *Memory) Puts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.puts)
}

func (m *Memory) Exists(_ context.Context, bucket, key string) (bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return false, err
	}
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.Object(bucket, key)
	return ok, nil
}

func (m *Memory) Put(_ context.Context, bucket, key string, reader io.Reader, contentType string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(bucket)[key] = Object{Data: data, ContentType: contentType}
	m.puts = append(m.puts, bucket+":"+key)
	return nil
}

func (m *Memory) PutFile(ctx context.Context, bucket, key, localPath, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return m.Put(ctx, bucket, key, bytes.NewReader(data), contentType)
}

func (m *Memory) Get(_ context.Context, bucket, key, localDest string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	o, ok := m.Object(bucket, key)
	if !ok {
		return storage.ErrNotFound
	}
	return os.WriteFile(localDest, o.Data, 0o644)
}

func (m *Memory) ListPrefix(_ context.Context, bucket, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return nil, storage.ErrNotFound
	}

	seen := make(map[string]bool)
	var objects []storage.Object
	for key := range b {
		rest, found := strings.CutPrefix(key, prefix)
		if !found {
			continue
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			dir := prefix + rest[:i+1]
			if !seen[dir] {
				seen[dir] = true
				objects = append(objects, storage.Object{Name: dir, IsContainer: true})
			}
			continue
		}
		objects = append(objects, storage.Object{Name: key})
	}

	slices.SortFunc(objects, func(a, b storage.Object) int {
		return strings.Compare(a.Name, b.Name)
	})
	return objects, nil
}

func (m *Memory) BucketExists(_ context.Context, bucket string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.buckets[bucket]
	return ok, nil
}

func (m *Memory) CreateBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(bucket)
	return nil
}

func (m *Memory) ListBuckets(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for name := range m.buckets {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (m *Memory) bucket(name string) map[string]Object {
	b, ok := m.buckets[name]
	if !ok {
		b = make(map[string]Object)
		m.buckets[name] = b
	}
	return b
}

// ErrInjected is a convenience fault for ExistsErr and PutErr.
var ErrInjected = errors.New("injected storage fault")
