package storage

import (
	"context"
	"strings"
	"sync"
)

const memoryScheme = "memory://"

// MemoryStore keeps objects in memory. URLs have the form memory://<name>.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	uploads int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Upload implements ObjectStore.
func (s *MemoryStore) Upload(_ context.Context, filename string, data []byte, _ string) (string, error) {
	url := memoryScheme + ObjectName(filename)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[url] = append([]byte(nil), data...)
	s.uploads++
	return url, nil
}

// Fetch implements Fetcher.
func (s *MemoryStore) Fetch(_ context.Context, url string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[url]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Owns implements Resolver.
func (s *MemoryStore) Owns(url string) bool { return strings.HasPrefix(url, memoryScheme) }

// Uploads returns the number of successful uploads.
func (s *MemoryStore) Uploads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploads
}
