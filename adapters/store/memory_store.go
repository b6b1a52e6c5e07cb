package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the store ports. It
// backs the CSRF manager in single-instance deployments and stands in
// for Redis in tests. Expiry is checked lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]entry
	windows map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]entry),
		windows: make(map[string][]time.Time),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock: another goroutine may have
		// overwritten the key with a fresh value in the meantime.
		if cur, exists := s.data[key]; exists && time.Now().After(cur.expiresAt) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Window(ctx context.Context, key string, windowStart time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.windows[key][:0]
	for _, ts := range s.windows[key] {
		if !ts.Before(windowStart) {
			kept = append(kept, ts)
		}
	}
	s.windows[key] = kept

	if len(kept) == 0 {
		return 0, time.Time{}, nil
	}
	return int64(len(kept)), kept[0], nil
}

func (s *MemoryStore) Record(ctx context.Context, key string, now time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows[key] = append(s.windows[key], now)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, ts := range s.windows[key] {
		if !ts.Before(windowStart) {
			count++
		}
	}
	return count, nil
}

// Sweep removes every expired key-value record. The CSRF manager calls
// this from its periodic cleanup loop.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

// Clear drops all state. Tests use it to reset the store between cases.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]entry)
	s.windows = make(map[string][]time.Time)
}
