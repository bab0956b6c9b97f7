package catalog

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store preserving insertion order. Suitable for
// tests and ephemeral catalogs.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Record)}
}

// Add inserts or replaces a record. A replaced record keeps its original
// position in insertion order.
func (m *MemoryStore) Add(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.IndexedAt = time.Now()
	if _, exists := m.byID[rec.ID]; !exists {
		m.order = append(m.order, rec.ID)
	}
	clone := *rec
	m.byID[rec.ID] = &clone
	return nil
}

// Get returns a record by id.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

// GetAll returns records in insertion order.
func (m *MemoryStore) GetAll(ctx context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.order))
	for _, id := range m.order {
		clone := *m.byID[id]
		out = append(out, &clone)
	}
	return out, nil
}

// Delete removes a record by id.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return nil
	}
	delete(m.byID, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every record.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.byID = make(map[string]*Record)
	return nil
}

// Count returns the number of records.
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.order)), nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
