package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold is the map size above which expired windows are dropped.
const sweepThreshold = 10_000

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps counters in process memory. In a horizontally scaled
// deployment each instance enforces its own budget.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window), now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Increment(_ context.Context, key string, length time.Duration) (Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		if len(s.windows) >= sweepThreshold {
			s.sweep(now)
		}
		w = &window{resetAt: now.Add(length)}
		s.windows[key] = w
	}
	w.count++
	return Counter{Count: w.count, ResetAt: w.resetAt}, nil
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, k)
		}
	}
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
