// Package cache provides a small size- and TTL-bounded cache for read
// paths.
//
// The cache is constructed per process and injected into its consumers;
// there is no package-level instance. Mutating operations must never make
// decisions from cached values; they read the authoritative store inside
// their own transaction and invalidate here afterward.
package cache

import (
	"sync"
	"time"
)

// Cache maps keys to values with TTL expiry and a size bound. The zero
// value is not usable; construct with New.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]entry[V]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// New builds a cache holding at most maxEntries values for at most ttl
// each. A maxEntries of zero disables the size bound; a ttl of zero
// disables expiry.
func New[K comparable, V any](maxEntries int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		entries:    make(map[K]entry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the cached value for key, if present and unexpired.
// Expired entries are removed on access.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(stored) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return stored.value, true
}

// Put stores a value, evicting the oldest entry if the cache is full.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Invalidate removes the entry for key, if present.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}

// Len returns the number of stored entries, including any that have
// expired but not yet been evicted.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K, V]) expired(stored entry[V]) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(stored.storedAt) > c.ttl
}

func (c *Cache[K, V]) evictOldestLocked() {
	var (
		oldestKey K
		oldestAt  time.Time
		found     bool
	)
	for key, stored := range c.entries {
		if !found || stored.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = stored.storedAt
			found = true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
