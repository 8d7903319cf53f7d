package property

import (
	"context"
	"sort"
	"sync"
)

// Store is the read accessor the pipeline consumes. The durable record
// lives outside the pipeline; implementations must return snapshots the
// caller is free to hold across a generation job.
type Store interface {
	// GetProperty returns one record by identifier.
	// Returns ErrNotFound if no record exists.
	GetProperty(ctx context.Context, id string) (*Record, error)

	// ListProperties returns all records ordered by identifier.
	ListProperties(ctx context.Context) ([]*Record, error)

	// Close releases any resources held by the store.
	Close() error
}

// ErrNotFound is returned when a property doesn't exist.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return "property not found: " + e.ID
}

// IsNotFound returns true if the error is ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}

// MemoryStore is an in-memory Store for tests and programmatic callers.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates a MemoryStore seeded with the given records.
func NewMemoryStore(records ...*Record) *MemoryStore {
	m := &MemoryStore{records: make(map[string]*Record, len(records))}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return m
}

// Put inserts or replaces a record (test seeding helper).
func (m *MemoryStore) Put(r *Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
}

func (m *MemoryStore) GetProperty(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound{ID: id}
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListProperties(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
