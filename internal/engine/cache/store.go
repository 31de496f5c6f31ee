package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Common cache errors. Only malformed configuration is an error; a missing
// or expired key is a normal miss, never a failure.
var (
	ErrInvalidTTL     = errors.New("ttl must be positive")
	ErrInvalidMaxSize = errors.New("max size must be positive")
	ErrInvalidKey     = errors.New("cache key cannot be empty")
)

// Stats is a point-in-time snapshot of store counters. TotalEntries is the
// current live count; the remaining counters are monotone for the lifetime
// of the store and survive ClearAll.
type Stats struct {
	TotalEntries int    `json:"total_entries"`
	TotalHits    uint64 `json:"total_hits"`
	TotalMisses  uint64 `json:"total_misses"`
	Evictions    uint64 `json:"evictions"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.TotalHits + s.TotalMisses
	if total == 0 {
		return 0
	}
	return float64(s.TotalHits) / float64(total)
}

// Store is a bounded in-memory key-value cache with TTL expiry.
//
// All operations are serialized through a single mutex: Get mutates state
// (hit counts and lazy expiry removal), so there is no useful read-only
// fast path. Operations never block on I/O and complete in O(1) or O(n)
// of stored entries.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	maxSize int

	hits      uint64
	misses    uint64
	evictions uint64

	// now is injected for deterministic expiry tests.
	now func() time.Time
}

// NewStore creates a Store holding at most maxSize entries.
func NewStore(maxSize int) (*Store, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxSize, maxSize)
	}
	return &Store{
		entries: make(map[string]*Entry),
		maxSize: maxSize,
		now:     time.Now,
	}, nil
}

// SetClock replaces the store's clock. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Get returns the value for key if a live entry exists. Expired entries
// are removed as part of the call and count as misses, never as hits.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false
	}
	if entry.expiredAt(s.now()) {
		delete(s.entries, key)
		s.misses++
		return nil, false
	}

	entry.HitCount++
	s.hits++
	return entry.Value, true
}

// Set inserts or replaces the entry for key with expiry now + ttl. When
// the store is full and key is new, one entry is evicted first: the one
// with the earliest expiry, ties broken by lowest hit count, then by
// oldest creation time. Replacing an existing key never evicts.
func (s *Store) Set(key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxSize {
		s.evictOne()
	}

	s.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

// Invalidate removes the entry for key if present. Absent keys are a no-op.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// ClearExpired sweeps every entry and removes the expired ones, returning
// the number removed.
func (s *Store) ClearExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if entry.expiredAt(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// ClearAll removes every entry. Lifetime hit/miss/eviction counters are
// preserved; only the live entry count resets.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.entries)
	s.entries = make(map[string]*Entry)
	return removed
}

// Stats returns a snapshot of the store counters. Expired-but-unswept
// entries are excluded from the live count.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	live := 0
	for _, entry := range s.entries {
		if !entry.expiredAt(now) {
			live++
		}
	}
	return Stats{
		TotalEntries: live,
		TotalHits:    s.hits,
		TotalMisses:  s.misses,
		Evictions:    s.evictions,
	}
}

// evictOne removes the entry closest to expiry, breaking ties by lowest
// hit count, then oldest creation time. Must be called with mu held and
// a non-empty map.
func (s *Store) evictOne() {
	var victim *Entry
	for _, entry := range s.entries {
		if victim == nil || evictBefore(entry, victim) {
			victim = entry
		}
	}
	if victim != nil {
		delete(s.entries, victim.Key)
		s.evictions++
	}
}

// evictBefore reports whether a should be evicted in preference to b.
func evictBefore(a, b *Entry) bool {
	if !a.ExpiresAt.Equal(b.ExpiresAt) {
		return a.ExpiresAt.Before(b.ExpiresAt)
	}
	if a.HitCount != b.HitCount {
		return a.HitCount < b.HitCount
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
