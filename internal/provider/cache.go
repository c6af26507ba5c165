package provider

import (
	"sync"
	"time"
)

// Cache stores fetched payloads for a bounded lifetime. Implementations must
// be safe for concurrent use.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache. Expired entries are dropped lazily
// on read and swept whenever the map grows past a threshold.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

const cacheSweepThreshold = 1024

// Get returns the cached value for key when present and unexpired.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= cacheSweepThreshold {
		c.sweepLocked()
	}
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

func (c *MemoryCache) sweepLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
