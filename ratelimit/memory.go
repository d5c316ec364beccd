package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many increments pass between sweeps of idle keys.
const sweepEvery = 256

type memoryLog struct {
	hits   []time.Time
	window time.Duration
}

// MemoryStore keeps a timestamp log per key. It is exact and suited to a
// single process. Keys whose attempts have all left their window are
// forgotten.
type MemoryStore struct {
	mu    sync.Mutex
	logs  map[string]*memoryLog
	now   func() time.Time
	calls int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs: make(map[string]*memoryLog),
		now:  time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration, limit int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.calls++
	if s.calls%sweepEvery == 0 {
		s.sweepLocked(now)
	}

	l, ok := s.logs[key]
	if !ok {
		l = &memoryLog{}
	}
	l.window = window
	l.hits = trim(l.hits, now.Add(-window))

	if len(l.hits) >= limit {
		if len(l.hits) == 0 {
			delete(s.logs, key)
			return Result{Allowed: false}, nil
		}
		s.logs[key] = l
		return Result{Allowed: false, RetryAfter: l.hits[0].Add(window).Sub(now)}, nil
	}

	l.hits = append(l.hits, now)
	s.logs[key] = l
	return Result{Allowed: true, Remaining: limit - len(l.hits)}, nil
}

// Sweep drops every key with no attempt left inside its window.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	s.sweepLocked(s.now())
	s.mu.Unlock()
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for key, l := range s.logs {
		if l.hits = trim(l.hits, now.Add(-l.window)); len(l.hits) == 0 {
			delete(s.logs, key)
		}
	}
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// Reset forgets every attempt for key.
func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	delete(s.logs, key)
	s.mu.Unlock()
}

// trim drops the hits at or before cutoff. hits is ordered oldest first.
func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
