package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) fresh(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// MemoryStore is the default in-process Store. Expired entries are dropped
// lazily on read and swept periodically once Start is called.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.fresh(m.now()) {
		m.mu.Lock()
		// Re-check under the write lock; a fresh overwrite may have raced in.
		if cur, ok := m.entries[key]; ok && !cur.fresh(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	copied := make([]byte, len(value))
	copy(copied, value)

	m.mu.Lock()
	m.entries[key] = memoryEntry{value: copied, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Sweep removes all expired entries and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	dropped := 0

	m.mu.Lock()
	for key, entry := range m.entries {
		if !entry.fresh(now) {
			delete(m.entries, key)
			dropped++
		}
	}
	m.mu.Unlock()
	return dropped
}

// Start runs a periodic sweep until the context is cancelled.
func (m *MemoryStore) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
