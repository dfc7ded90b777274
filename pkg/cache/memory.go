package cache

import (
	"context"
	"sync"
	"time"

	"course_platform_backend/pkg/monitoring"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store. It has no size bound and no background
// sweep; expired entries are dropped when read or cleared.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]entry),
		now:   now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		monitoring.CacheMisses.WithLabelValues("memory").Inc()
		return nil, false, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.items, key)
		monitoring.CacheMisses.WithLabelValues("memory").Inc()
		return nil, false, nil
	}

	monitoring.CacheHits.WithLabelValues("memory").Inc()
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	s.mu.Lock()
	s.items[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ClearPattern(_ context.Context, pattern string) error {
	re, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.items {
		if re.MatchString(key) {
			delete(s.items, key)
		}
	}
	return nil
}

func (s *MemoryStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]entry)
	s.mu.Unlock()
	return nil
}

// Len counts stored entries, including expired ones not yet evicted.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
