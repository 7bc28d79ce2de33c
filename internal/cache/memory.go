// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

// Get returns the entry for key if it exists and has not expired.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || IsExpired(e, s.now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put stores value under key.
func (s *MemoryStore) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	e, err := newEntry(key, value, ttl, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

// Purge deletes expired entries, or every entry when mode is PurgeAll.
func (s *MemoryStore) Purge(_ context.Context, mode PurgeMode) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.entries {
		if mode == PurgeAll || IsExpired(e, now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
