package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/ports"
)

// Config groups the tiered engine tunables.
type Config struct {
	// LocalTTL bounds staleness of the in-process tier.
	LocalTTL time.Duration
	// RemoteTTL is the shared-tier TTL; typically a few multiples of LocalTTL.
	RemoteTTL time.Duration
	// MaxEntries bounds the local tier; oldest-inserted entries are evicted.
	MaxEntries int
	// SweepProbability is the per-write chance of a full local expiry sweep.
	SweepProbability float64
	// RemoteTimeout caps every shared-tier operation so a slow Tier 2 cannot
	// stall callers.
	RemoteTimeout time.Duration
}

// TieredCache layers the local cache over an optional shared ports.Cache.
// The shared tier is strictly best-effort: any error there degrades to
// local-tier-only behavior and is only recorded in the stats.
type TieredCache struct {
	local  *LocalCache
	remote ports.Cache // nil when no shared tier is configured
	cfg    Config
	logger *logrus.Logger

	tier1Hits   uint64
	tier2Hits   uint64
	misses      uint64
	sets        uint64
	tier2Errors uint64
}

// NewTieredCache creates the engine. remote may be nil; correctness does not
// depend on it, only hit rate.
func NewTieredCache(cfg Config, remote ports.Cache, logger *logrus.Logger) *TieredCache {
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = 5 * time.Second
	}
	if cfg.RemoteTTL <= 0 {
		cfg.RemoteTTL = 30 * time.Second
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 2 * time.Second
	}
	return &TieredCache{
		local:  NewLocalCache(cfg.MaxEntries, cfg.SweepProbability),
		remote: remote,
		cfg:    cfg,
		logger: logger,
	}
}

// Get implements ports.TieredCache.Get.
func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, ok := t.local.Get(key); ok {
		atomic.AddUint64(&t.tier1Hits, 1)
		return value, true
	}

	if t.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, t.cfg.RemoteTimeout)
		value, ok, err := t.remote.Get(rctx, key)
		cancel()
		if err != nil {
			atomic.AddUint64(&t.tier2Errors, 1)
			atomic.AddUint64(&t.misses, 1)
			if t.logger != nil {
				t.logger.WithField("key", key).WithError(err).Debug("tier-2 get failed; treating as miss")
			}
			return nil, false
		}
		if ok {
			atomic.AddUint64(&t.tier2Hits, 1)
			t.local.Set(key, value, t.cfg.LocalTTL)
			return value, true
		}
	}

	atomic.AddUint64(&t.misses, 1)
	return nil, false
}

// Set implements ports.TieredCache.Set. The local write happens first and is
// never failed or blocked by the shared tier.
func (t *TieredCache) Set(ctx context.Context, key string, value []byte) {
	t.local.Set(key, value, t.cfg.LocalTTL)
	atomic.AddUint64(&t.sets, 1)

	if t.remote == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, t.cfg.RemoteTimeout)
	defer cancel()
	if err := t.remote.Set(rctx, key, value, t.cfg.RemoteTTL); err != nil {
		atomic.AddUint64(&t.tier2Errors, 1)
		if t.logger != nil {
			t.logger.WithField("key", key).WithError(err).Debug("tier-2 set failed; skipped")
		}
	}
}

// Invalidate implements ports.TieredCache.Invalidate.
func (t *TieredCache) Invalidate(ctx context.Context, key string) {
	t.local.Delete(key)

	if t.remote == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, t.cfg.RemoteTimeout)
	defer cancel()
	if err := t.remote.Delete(rctx, key); err != nil {
		atomic.AddUint64(&t.tier2Errors, 1)
		if t.logger != nil {
			t.logger.WithField("key", key).WithError(err).Debug("tier-2 delete failed; skipped")
		}
	}
}

// InvalidatePattern implements ports.TieredCache.InvalidatePattern. The shared
// tier deletion is cursor-based inside the Cache implementation, so large
// keyspaces do not block other operations.
func (t *TieredCache) InvalidatePattern(ctx context.Context, pattern string) {
	t.local.DeletePattern(pattern)

	if t.remote == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, t.cfg.RemoteTimeout)
	defer cancel()
	if err := t.remote.DeletePattern(rctx, pattern); err != nil {
		atomic.AddUint64(&t.tier2Errors, 1)
		if t.logger != nil {
			t.logger.WithField("pattern", pattern).WithError(err).Debug("tier-2 pattern delete failed; skipped")
		}
	}
}

// Stats implements ports.TieredCache.Stats.
func (t *TieredCache) Stats() ports.CacheStats {
	return ports.CacheStats{
		Tier1Hits:   atomic.LoadUint64(&t.tier1Hits),
		Tier2Hits:   atomic.LoadUint64(&t.tier2Hits),
		Misses:      atomic.LoadUint64(&t.misses),
		Sets:        atomic.LoadUint64(&t.sets),
		Tier2Errors: atomic.LoadUint64(&t.tier2Errors),
	}
}

// Reset implements ports.TieredCache.Reset. Only the local tier and counters
// are cleared; the shared tier is left untouched (it expires on its own TTLs).
func (t *TieredCache) Reset() {
	t.local.Reset()
	atomic.StoreUint64(&t.tier1Hits, 0)
	atomic.StoreUint64(&t.tier2Hits, 0)
	atomic.StoreUint64(&t.misses, 0)
	atomic.StoreUint64(&t.sets, 0)
	atomic.StoreUint64(&t.tier2Errors, 0)
}
