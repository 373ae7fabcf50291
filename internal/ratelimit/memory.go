package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter is the single process counter used in local mode. Expired
// windows are swept at most once per window length.
type MemoryCounter struct {
	mu        sync.Mutex
	windows   map[string]*window
	nextSweep time.Time
	now       func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: map[string]*window{}, now: time.Now}
}

func (m *MemoryCounter) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if !now.Before(m.nextSweep) {
		m.sweep(now)
		m.nextSweep = now.Add(ttl)
	}

	current, ok := m.windows[key]

	if !ok || !now.Before(current.expiresAt) {
		current = &window{expiresAt: now.Add(ttl)}
		m.windows[key] = current
	}

	current.count++
	return current.count, current.expiresAt.Sub(now), nil
}

func (m *MemoryCounter) sweep(now time.Time) {
	for key, current := range m.windows {
		if !now.Before(current.expiresAt) {
			delete(m.windows, key)
		}
	}
}
