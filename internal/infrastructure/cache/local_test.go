package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCacheSetGet(t *testing.T) {
	c := NewLocalCache(10, 0)

	c.Set("key", []byte("value"), time.Minute)
	got, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	// Overwrite replaces the whole entry.
	c.Set("key", []byte("other"), time.Minute)
	got, ok = c.Get("key")
	require.True(t, ok)
	assert.Equal(t, []byte("other"), got)
	assert.Equal(t, 1, c.Len())
}

func TestLocalCacheMiss(t *testing.T) {
	c := NewLocalCache(10, 0)
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestLocalCacheExpiry(t *testing.T) {
	c := NewLocalCache(10, 0)

	c.Set("key", []byte("value"), 10*time.Millisecond)
	_, ok := c.Get("key")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("key")
	assert.False(t, ok, "entry past its TTL must read as absent")
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
}

func TestLocalCacheEvictsOldestAtCapacity(t *testing.T) {
	c := NewLocalCache(3, 0)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("key-%d", i), []byte("v"), time.Minute)
	}
	require.Equal(t, 3, c.Len())

	// The fourth insert evicts the oldest-inserted entry, not any other.
	c.Set("key-3", []byte("v"), time.Minute)
	assert.Equal(t, 3, c.Len())

	_, ok := c.Get("key-0")
	assert.False(t, ok, "oldest entry should have been evicted")
	for _, key := range []string{"key-1", "key-2", "key-3"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "entry %s should survive", key)
	}
}

func TestLocalCacheSweepPurgesExpiredOnWrite(t *testing.T) {
	// Probability 1 makes every write sweep, so entries that are written once
	// and never read again cannot accumulate past their TTL.
	c := NewLocalCache(10, 1.0)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("stale-%d", i), []byte("v"), 10*time.Millisecond)
	}
	require.Equal(t, 5, c.Len())

	time.Sleep(20 * time.Millisecond)

	// No reads touch the stale keys; the next write alone reclaims them.
	c.Set("fresh", []byte("v"), time.Minute)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestLocalCacheOverwriteDoesNotEvict(t *testing.T) {
	c := NewLocalCache(2, 0)

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)
	// Updating an existing key at capacity must not push anything out.
	c.Set("a", []byte("3"), time.Minute)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("b")
	assert.True(t, ok)
}

func TestLocalCacheDelete(t *testing.T) {
	c := NewLocalCache(10, 0)

	c.Set("key", []byte("value"), time.Minute)
	c.Delete("key")
	_, ok := c.Get("key")
	assert.False(t, ok)

	// Deleting an absent key is a no-op.
	c.Delete("absent")
}

func TestLocalCacheDeletePattern(t *testing.T) {
	c := NewLocalCache(10, 0)

	c.Set("live:all", []byte("1"), time.Minute)
	c.Set("live:emp-1", []byte("2"), time.Minute)
	c.Set("license:emp-1", []byte("3"), time.Minute)

	c.DeletePattern("live:*")

	_, ok := c.Get("live:all")
	assert.False(t, ok)
	_, ok = c.Get("live:emp-1")
	assert.False(t, ok)
	_, ok = c.Get("license:emp-1")
	assert.True(t, ok, "non-matching keys must survive a pattern delete")
}

func TestLocalCacheReset(t *testing.T) {
	c := NewLocalCache(10, 0)

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)
	c.Reset()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}
