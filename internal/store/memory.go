package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store with per-key expiry. It mirrors the Redis
// semantics (TTL set once on the 0->1 transition) so tests and single-node
// deployments behave identically to the distributed setup.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	count    int64
	value    string
	deadline time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent := m.live(key)
	if ent == nil {
		ent = &memoryEntry{deadline: m.now().Add(window)}
		m.entries[key] = ent
	}
	ent.count++
	return ent.count, nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent := m.live(key)
	if ent == nil {
		return "", nil
	}
	return ent.value, nil
}

// Set stores a value with a TTL. Used by tests to plant revocation entries;
// a zero or negative ttl deletes the key.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		delete(m.entries, key)
		return nil
	}
	m.entries[key] = &memoryEntry{value: value, deadline: m.now().Add(ttl)}
	return nil
}

// live returns the entry at key, evicting it first if its deadline passed.
func (m *Memory) live(key string) *memoryEntry {
	ent, ok := m.entries[key]
	if !ok {
		return nil
	}
	if m.now().After(ent.deadline) {
		delete(m.entries, key)
		return nil
	}
	return ent
}
