// Package memory stores artifacts in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Store keeps artifacts in a map and returns pseudo URIs.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates a new in-memory artifact store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Save persists the artifact and returns a memory:// URI.
func (s *Store) Save(_ context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", name), nil
}

// Get returns a stored artifact.
func (s *Store) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[name]
	return data, ok
}
