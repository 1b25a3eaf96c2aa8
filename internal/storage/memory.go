package storage

import (
	"context"
	"sync"
	"time"
)

// Ensure MemoryCounter implements Counter
var _ Counter = (*MemoryCounter)(nil)

type memoryWindow struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter keeps counters in process memory. Counts are lost on restart
// and are not shared between replicas.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     nowFunc
}

// NewMemoryCounter creates an empty in-memory counter
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// Increment implements Counter
func (m *MemoryCounter) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &memoryWindow{expiresAt: now.Add(window)}
		m.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// PurgeExpired implements Counter
func (m *MemoryCounter) PurgeExpired(_ context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.expiresAt) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked keys
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Close implements Counter
func (m *MemoryCounter) Close() error {
	return nil
}
