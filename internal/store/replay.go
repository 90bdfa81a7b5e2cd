package store

import (
	"sync"
	"time"
)

// ReplayCache remembers idempotency keys that have already been served so
// client retries of unsafe requests (pollers resend aggressively on flaky
// links) can be detected. Keys expire after a TTL; expired entries are
// purged opportunistically on writes.
type ReplayCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	writes  int

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time
}

// NewReplayCache returns a cache whose keys live for ttl. A non-positive
// ttl disables expiry purging (keys still live only for the process).
func NewReplayCache(ttl time.Duration) *ReplayCache {
	return &ReplayCache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Seen reports whether key is present and still within its TTL.
func (c *ReplayCache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.ttl > 0 && c.now().Sub(at) > c.ttl {
		delete(c.entries, key)
		return false
	}
	return true
}

// Remember records key with the current timestamp. Every ~4096 writes the
// cache sweeps out expired entries to bound memory.
func (c *ReplayCache) Remember(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = now

	c.writes++
	if c.ttl > 0 && c.writes >= 4096 {
		for k, at := range c.entries {
			if now.Sub(at) > c.ttl {
				delete(c.entries, k)
			}
		}
		c.writes = 0
	}
}
