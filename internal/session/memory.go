package session

import (
	"context"
	"sync"
)

// NewMemoryStore returns a Store backed by an in-memory map.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[Kind]string)}
}

// MemoryStore implements Store for tests and --ephemeral runs.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[Kind]string
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, kind Kind) (string, bool, error) {
	s.mu.RLock()
	value, ok := s.values[kind]
	s.mu.RUnlock()
	return value, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, kind Kind, value string) error {
	s.mu.Lock()
	s.values[kind] = value
	s.mu.Unlock()
	return nil
}

// SetMany implements BatchStore.
func (s *MemoryStore) SetMany(_ context.Context, values map[Kind]string) error {
	s.mu.Lock()
	for kind, value := range values {
		s.values[kind] = value
	}
	s.mu.Unlock()
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	clear(s.values)
	s.mu.Unlock()
	return nil
}

// Has reports whether kind is stored. Useful for tests.
func (s *MemoryStore) Has(kind Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[kind]
	return ok
}
