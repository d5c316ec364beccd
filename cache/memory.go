package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
	tags      []string
}

// MemoryStore is an in-process Store with a tag index.
type MemoryStore struct {
	mu        sync.RWMutex
	items     map[string]memoryEntry
	tags      map[string]map[string]struct{}
	versions  map[string]int64
	now       func() time.Time
	stopClean chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a MemoryStore. A positive cleanupInterval starts
// a goroutine that evicts expired entries until Close.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		items:     make(map[string]memoryEntry),
		tags:      make(map[string]map[string]struct{}),
		versions:  make(map[string]int64),
		now:       time.Now,
		stopClean: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// SetClock replaces the time source. Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopClean:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.items {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			s.deleteLocked(k)
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.items[key]
	now := s.now()
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		s.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the key.
		if cur, ok := s.items[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			s.deleteLocked(key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.data, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		s.deleteLocked(key)
	}
	e := memoryEntry{data: append([]byte(nil), value...), tags: append([]string(nil), tags...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = e
	for _, tag := range tags {
		keys, ok := s.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) InvalidateTag(_ context.Context, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.tags[tag] {
		s.deleteLocked(key)
	}
	delete(s.tags, tag)
	s.versions[tag]++
	return nil
}

func (s *MemoryStore) TagVersions(_ context.Context, tags []string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(tags))
	for i, tag := range tags {
		out[i] = s.versions[tag]
	}
	return out, nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopClean) })
	return nil
}

func (s *MemoryStore) deleteLocked(key string) {
	e, ok := s.items[key]
	if !ok {
		return
	}
	delete(s.items, key)
	for _, tag := range e.tags {
		if keys, ok := s.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.tags, tag)
			}
		}
	}
}
