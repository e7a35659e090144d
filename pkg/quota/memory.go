package quota

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in memory. Suitable for a single service
// instance and for tests; counters do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]Counter
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]Counter)}
}

// Get implements CounterStore.
func (m *MemoryStore) Get(ctx context.Context, userID string) (Counter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.counters[userID]
	if !ok {
		return Counter{}, ErrNoCounter
	}
	return c, nil
}

// Set implements CounterStore.
func (m *MemoryStore) Set(ctx context.Context, userID string, c Counter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[userID] = c
	return nil
}

// Delete implements CounterStore.
func (m *MemoryStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counters, userID)
	return nil
}
