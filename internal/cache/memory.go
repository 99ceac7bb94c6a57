package cache

import (
	"context"
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

type entry struct {
	value     []byte
	createdAt time.Time
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
	HitRate float64
}

// MemoryCache is an in-process Cache bounded by entry count. When full,
// the oldest entry is evicted.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	hits       int64
	misses     int64
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache creates a MemoryCache holding at most maxEntries values
// (non-positive means unbounded) and starts its background cleanup.
// Call Close to stop it.
func NewMemoryCache(maxEntries int) *MemoryCache {
	c := newMemoryCache(maxEntries, time.Now)

	go c.cleanupLoop(cleanupInterval)

	return c
}

func newMemoryCache(maxEntries int, now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        now,
		stop:       make(chan struct{}),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && e.expired(c.now()) {
		delete(c.entries, key)

		ok = false
	}

	if !ok {
		c.misses++
		return nil, false, nil
	}

	c.hits++

	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.removeExpired(now)

		if len(c.entries) >= c.maxEntries {
			c.evictOldest()
		}
	}

	e := entry{value: val, createdAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}

	c.entries[key] = e

	return nil
}

// Stats returns hit and miss counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}

	return s
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

// Size returns the number of stored entries, expired ones included until
// they are swept.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Close stops the background cleanup. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })

	return nil
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeExpired(c.now())
}

func (c *MemoryCache) removeExpired(now time.Time) {
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}

func (c *MemoryCache) evictOldest() {
	var (
		oldestKey  string
		oldestTime time.Time
		found      bool
	)

	for k, e := range c.entries {
		if !found || e.createdAt.Before(oldestTime) || (e.createdAt.Equal(oldestTime) && k < oldestKey) {
			oldestKey, oldestTime, found = k, e.createdAt, true
		}
	}

	if found {
		delete(c.entries, oldestKey)
	}
}
