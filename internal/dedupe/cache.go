// ABOUTME: TTL cache for suppressing webhook redeliveries by platform message ID.
// ABOUTME: Pruning happens inline on insert; there is no background goroutine to manage.

package dedupe

import (
	"sync"
	"time"
)

// Cache tracks recently seen delivery keys. Platforms redeliver webhooks on
// slow responses, so each delivery must be processed at most once per TTL
// window.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	maxSize int

	// now is swappable for tests
	now func() time.Time
}

// New creates a cache that remembers keys for ttl, holding at most maxSize
// entries.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Seen atomically checks and marks a key. It returns true if the key was
// already seen within the TTL window (a duplicate); otherwise it records
// the key and returns false.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if at, ok := c.seen[key]; ok && now.Sub(at) <= c.ttl {
		return true
	}

	if len(c.seen) >= c.maxSize {
		c.prune(now)
	}

	c.seen[key] = now
	return false
}

// Len reports the current number of tracked keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// prune drops expired entries, then if still at capacity drops the oldest.
// Linear scans are fine here: pruning runs only when the cap is hit, and
// the cap bounds the scan.
func (c *Cache) prune(now time.Time) {
	for k, at := range c.seen {
		if now.Sub(at) > c.ttl {
			delete(c.seen, k)
		}
	}

	for len(c.seen) >= c.maxSize {
		var oldestKey string
		var oldestAt time.Time
		for k, at := range c.seen {
			if oldestKey == "" || at.Before(oldestAt) {
				oldestKey = k
				oldestAt = at
			}
		}
		delete(c.seen, oldestKey)
	}
}
