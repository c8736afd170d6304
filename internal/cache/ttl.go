package cache

import (
	"sync"
	"time"
)

// TTLCache implements Cache with time-based expiration. Expired entries are
// lazily evicted on lookup; a background sweep removes the rest.
type TTLCache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	maxEntries int
	stats      Stats

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTTLCache creates a new TTL cache with the specified maximum entry count.
func NewTTLCache(maxEntries int) *TTLCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}

	c := &TTLCache{
		entries:    make(map[string]Entry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}

	go c.sweep()

	return c
}

// Get retrieves an entry if present and not expired.
func (c *TTLCache) Get(key string) (Entry, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return Entry{}, false
	}

	if entry.Expired(now) {
		delete(c.entries, key)
		c.stats.Evictions++
		c.stats.Misses++
		return Entry{}, false
	}

	c.stats.Hits++
	return entry, true
}

// Set stores an entry under key with the given TTL.
func (c *TTLCache) Set(key string, entry Entry, ttl time.Duration) {
	now := time.Now()
	entry.CachedAt = now
	entry.ExpiresAt = now.Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.stats.Sets++
}

// Clear removes all entries.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
}

// Stats returns cache performance counters.
func (c *TTLCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Entries = int64(len(c.entries))
	return stats
}

// Close stops the background sweep goroutine.
func (c *TTLCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

// evictOldest removes the entry closest to expiry. Caller must hold the
// write lock.
func (c *TTLCache) evictOldest() {
	var oldestKey string
	var oldestExpiry time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.ExpiresAt.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = entry.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

// sweep runs periodically to remove expired entries.
func (c *TTLCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *TTLCache) removeExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			c.stats.Evictions++
		}
	}
}
