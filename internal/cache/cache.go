// Package cache implements a bounded in-memory TTL cache used to memoize
// idempotent provider reads. Instances are constructor-injected so tests and
// services own their lifecycle; there is no package-level singleton.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	createdAt time.Time
	ttl       time.Duration
	seq       uint64
}

// Cache is a capacity-bounded key/value store with per-entry TTLs.
// Expiry is lazy (checked on Get); when Set finds the cache full it first
// purges expired entries, then evicts the oldest-inserted one. Eviction is
// insertion-order (FIFO), not LRU: recency of access is deliberately ignored
// because cached provider reads age out on TTL long before capacity pressure
// matters in practice.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	capacity int
	seq      uint64
	now      func() time.Time
}

// New returns an empty cache holding at most capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 128
	}
	return &Cache{
		entries:  make(map[string]entry),
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the value stored under key. An entry past its TTL is removed
// and reported as absent.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) > e.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl, evicting if the cache is full.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{value: value, createdAt: c.now(), ttl: ttl}
	if old, exists := c.entries[key]; exists {
		// Overwrite refreshes the TTL but keeps the insertion rank, so
		// eviction order stays strictly first-inserted-first-out.
		e.seq = old.seq
		c.entries[key] = e
		return
	}

	if len(c.entries) >= c.capacity {
		c.purgeExpiredLocked()
		if len(c.entries) >= c.capacity {
			c.evictOldestLocked()
		}
	}
	c.seq++
	e.seq = c.seq
	c.entries[key] = e
}

// Delete removes the entry under key, if any.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) purgeExpiredLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.createdAt) > e.ttl {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestSeq uint64
	for k, e := range c.entries {
		if oldestKey == "" || e.seq < oldestSeq {
			oldestKey = k
			oldestSeq = e.seq
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
