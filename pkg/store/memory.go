package store

import (
	"context"
	"sync"

	"github.com/carebridge/audittrail/pkg/audit"
)

// MemoryStore is a transient in-process store, used in tests and as the
// write-through cache behind handlers.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []audit.SignedEntry
	byID    map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

// Append stores a copy of the signed entry.
func (s *MemoryStore) Append(_ context.Context, e audit.SignedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

// List returns all entries in append order.
func (s *MemoryStore) List(_ context.Context) ([]audit.SignedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.SignedEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Get retrieves an entry by id.
func (s *MemoryStore) Get(_ context.Context, id string) (audit.SignedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return audit.SignedEntry{}, ErrEntryNotFound
	}
	return s.entries[i], nil
}

// Size returns the number of stored entries.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
