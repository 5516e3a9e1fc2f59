// Package cache implements the process-local TTL cache used by the
// provider clients to avoid redundant network calls.
package cache

import (
	"sync"
	"time"
)

// entry pairs a payload with its expiry instant. Entries are never
// mutated in place, only replaced by Set.
type entry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache is a mutex-guarded key/value store with per-entry TTL.
// Expiry is lazy: an expired entry is indistinguishable from a miss and
// is removed on the read that observes it. There is no further eviction;
// key cardinality is bounded by the finite set of symbols and endpoints.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	// now is swappable for tests
	now func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the unexpired payload for key, or ok=false on a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

// Set stores data under key for the given TTL, replacing any previous entry.
func (c *Cache) Set(key string, data interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		data:      data,
		expiresAt: c.now().Add(ttl),
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
