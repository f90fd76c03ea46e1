package store

import (
	"context"
	"sync"

	"github.com/georgepadayatti/esign/document"
)

// MemoryStore keeps documents in a map. Values are copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*document.Document
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*document.Document)}
}

// Get returns a copy of the document.
func (s *MemoryStore) Get(_ context.Context, id string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// Create stores doc at version 1.
func (s *MemoryStore) Create(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return ErrAlreadyExists
	}
	c := doc.Clone()
	c.Version = 1
	s.docs[doc.ID] = c
	return nil
}

// Update implements DocumentStore.
func (s *MemoryStore) Update(_ context.Context, id string, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	if err := checkUpdate(current, u); err != nil {
		return err
	}
	c := u.Document.Clone()
	c.ID = id
	c.Version = u.ExpectedVersion + 1
	s.docs[id] = c
	return nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
