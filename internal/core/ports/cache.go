package ports

import (
	"context"
	"time"
)

// Cache defines the shared (Tier 2) key-value cache contract.
// Implementations should degrade gracefully (returning an error without crashing
// callers) so that the tiered engine can fall back to its local tier.
type Cache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 or negative means no expiration if supported).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePattern removes all keys matching a glob-style pattern. Implementations
	// must iterate incrementally (cursor-based) rather than dumping the full keyspace.
	DeletePattern(ctx context.Context, pattern string) error
}

// CacheStats are the counters the tiered engine maintains. All counters are
// cumulative since construction or the last Reset.
type CacheStats struct {
	Tier1Hits   uint64 `json:"tier1_hits"`
	Tier2Hits   uint64 `json:"tier2_hits"`
	Misses      uint64 `json:"misses"`
	Sets        uint64 `json:"sets"`
	Tier2Errors uint64 `json:"tier2_errors"`
}

// HitRate is (tier1Hits+tier2Hits)/totalRequests, 0 when no requests were made.
func (s CacheStats) HitRate() float64 {
	total := s.Tier1Hits + s.Tier2Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Tier1Hits+s.Tier2Hits) / float64(total)
}

// TieredCache serves hot computed views with bounded staleness. It never
// computes values itself: callers are responsible for computing on miss and
// calling Set. All methods are safe for concurrent use.
type TieredCache interface {
	// Get checks the local tier, then the shared tier. A shared-tier hit
	// repopulates the local tier. ok=false on full miss; shared-tier errors
	// are treated as misses.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set writes the local tier immediately; a shared-tier failure never fails
	// the local write.
	Set(ctx context.Context, key string, value []byte)
	// Invalidate removes the key from both tiers. A no-op for absent keys.
	Invalidate(ctx context.Context, key string)
	// InvalidatePattern removes all keys matching a glob-style pattern from
	// both tiers.
	InvalidatePattern(ctx context.Context, pattern string)
	// Stats returns a snapshot of the engine counters.
	Stats() CacheStats
	// Reset clears both counters and the local tier. Intended for tests.
	Reset()
}
