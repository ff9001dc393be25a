// Package complexity holds the reader's current complexity level, persists
// it across restarts and announces changes to subscribers and, optionally,
// to other instances over Kafka.
package complexity

import (
	"context"
	"sync"
)

// PreferenceKey is the single key the level is persisted under. Values are
// the strings "1".."5".
const PreferenceKey = "complexity_level"

// Store persists string preferences.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put creates or replaces the value for key.
	Put(ctx context.Context, key, value string) error

	// Close releases resources.
	Close() error
}

// MemoryStore keeps preferences in process. Used in tests and when no
// persistence is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Close() error { return nil }
