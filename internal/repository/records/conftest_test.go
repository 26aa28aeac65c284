package records

import (
	"context"
	"path"
	"sync"

	"github.com/eldadyikne/portfolio-agent/internal/db"
)

// fakeStore is an in-memory JSON store for repository tests.
type fakeStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	scanErr error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string][]byte)}
}

func (f *fakeStore) JSONSet(_ context.Context, key, _ string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	// JSON.GET with "$" wraps the document in a one-element array.
	wrapped := append([]byte("["), data...)
	return append(wrapped, ']'), nil
}

func (f *fakeStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.docs {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
