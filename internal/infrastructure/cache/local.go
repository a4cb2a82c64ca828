package cache

import (
	"math/rand"
	"path"
	"sync"
	"time"
)

// localEntry is one Tier-1 record. Entries are immutable after insertion;
// updates overwrite the whole entry.
type localEntry struct {
	value  []byte
	expiry time.Time
}

func (e localEntry) expired(now time.Time) bool {
	return !now.Before(e.expiry)
}

// LocalCache is the in-process short-TTL tier: a mutex-guarded map with a
// bounded entry count and insertion-order eviction. Expiry is checked lazily on
// read; writes additionally trigger a full expired-entry sweep with a small
// fixed probability so keys that are written once and never read again cannot
// accumulate.
type LocalCache struct {
	mu         sync.Mutex
	entries    map[string]localEntry
	order      []string // insertion order, oldest first
	maxEntries int
	sweepProb  float64
}

// NewLocalCache creates a bounded local cache. maxEntries <= 0 disables the
// bound; sweepProb outside (0,1] disables the probabilistic sweep.
func NewLocalCache(maxEntries int, sweepProb float64) *LocalCache {
	return &LocalCache{
		entries:    make(map[string]localEntry),
		maxEntries: maxEntries,
		sweepProb:  sweepProb,
	}
}

// Get returns the value for key, treating expired entries as absent.
func (c *LocalCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if ent.expired(time.Now()) {
		c.remove(key)
		return nil, false
	}
	return ent.value, true
}

// Set overwrites key with value, valid for ttl from now. Inserting beyond the
// configured bound evicts the oldest-inserted entry.
func (c *LocalCache) Set(key string, value []byte, ttl time.Duration) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sweepProb > 0 && rand.Float64() < c.sweepProb {
		c.sweep(now)
	}

	if _, exists := c.entries[key]; !exists {
		if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
			c.evictOldest()
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = localEntry{value: value, expiry: now.Add(ttl)}
}

// Delete removes key if present. Absence is a no-op.
func (c *LocalCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
}

// DeletePattern removes every entry whose key matches the glob pattern.
func (c *LocalCache) DeletePattern(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if matched, err := path.Match(pattern, key); err == nil && matched {
			c.remove(key)
		}
	}
}

// Len reports the number of entries currently held, expired or not.
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops every entry.
func (c *LocalCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]localEntry)
	c.order = c.order[:0]
}

// remove deletes key from the map and the insertion-order queue.
// Callers must hold the lock.
func (c *LocalCache) remove(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// evictOldest removes the least-recently-inserted entry.
// Callers must hold the lock.
func (c *LocalCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

// sweep removes every expired entry. Callers must hold the lock.
func (c *LocalCache) sweep(now time.Time) {
	for key, ent := range c.entries {
		if ent.expired(now) {
			c.remove(key)
		}
	}
}
