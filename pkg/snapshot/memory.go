package snapshot

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in memory. It is intended for tests and for
// callers that embed the watcher and manage persistence themselves.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewMemoryStore returns a store whose first Load yields initial, or an empty
// snapshot when initial is nil.
func NewMemoryStore(initial *Snapshot) *MemoryStore {
	return &MemoryStore{snap: initial}
}

// Load returns a copy of the stored snapshot.
func (m *MemoryStore) Load(_ context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FromEntries(m.snap.Entries()...), nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = FromEntries(s.Entries()...)
	return nil
}

// Location returns "memory".
func (m *MemoryStore) Location() string {
	return "memory"
}
