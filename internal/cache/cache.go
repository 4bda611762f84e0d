// Package cache memoizes comparison results by cache key in a
// two-tier cache: an in-process L1 and an optional Redis L2.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/keymatch/internal/model"
)

const (
	DefaultTTL = 15 * time.Minute
	keyPrefix  = "keymatch:cmp:"
)

// ResultCache stores comparisons in L1 (memory) and, when reachable, L2
// (Redis). Redis failures never fail a lookup; they are logged once.
type ResultCache struct {
	l1         sync.Map // key → *entry
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time

	hits       atomic.Int64
	misses     atomic.Int64
	warnedOnce atomic.Bool
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New creates a ResultCache. An empty redisURL, an unparsable one or an
// unreachable server leaves L2 disabled.
func New(redisURL string, ttl time.Duration, maxEntries int, logger *slog.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &ResultCache{ttl: ttl, maxEntries: maxEntries, logger: logger, now: time.Now}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis URL, result cache L2 disabled", "error", err)
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("redis unreachable, result cache L2 disabled", "addr", opts.Addr, "error", err)
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				logger.Info("result cache L2 connected", "addr", opts.Addr)
			}
		}
	}

	logger.Debug("result cache initialized", "ttl", ttl, "redis", c.rdb != nil, "max_entries", maxEntries)
	return c
}

// Key is the storage key for a comparison cache key.
func Key(ck string) string {
	return keyPrefix + ck
}

// Get returns the cached comparison for ck, trying L1 then L2. An L2
// hit is copied into L1.
func (c *ResultCache) Get(ctx context.Context, ck string) (model.Comparison, bool) {
	key := Key(ck)

	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if c.now().Before(e.expiresAt) {
			var out model.Comparison
			if json.Unmarshal(e.data, &out) == nil {
				c.hits.Add(1)
				return out, true
			}
		}
		c.l1.Delete(key)
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var out model.Comparison
			if json.Unmarshal(data, &out) == nil {
				c.hits.Add(1)
				c.l1.Store(key, &entry{data: data, expiresAt: c.now().Add(c.ttl)})
				return out, true
			}
		case !errors.Is(err, redis.Nil):
			c.warnOnce(err)
		}
	}

	c.misses.Add(1)
	return model.Comparison{}, false
}

// Set stores cmp under ck in both tiers.
func (c *ResultCache) Set(ctx context.Context, ck string, cmp model.Comparison) {
	data, err := json.Marshal(cmp)
	if err != nil {
		c.logger.Warn("encoding comparison for cache", "error", err)
		return
	}
	key := Key(ck)

	c.evictIfNeeded()
	c.l1.Store(key, &entry{data: data, expiresAt: c.now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.warnOnce(err)
		}
	}
}

// Stats returns hit and miss counters.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases the Redis client, if any.
func (c *ResultCache) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *ResultCache) warnOnce(err error) {
	if c.warnedOnce.CompareAndSwap(false, true) {
		c.logger.Warn("redis unavailable, serving result cache from memory", "error", err)
	}
}

// evictIfNeeded drops expired entries, then the entries closest to expiry,
// until L1 has room for one more.
func (c *ResultCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if e := val.(*entry); !now.Before(e.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return true
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(key, val any) bool {
			e := val.(*entry)
			if oldestKey == nil || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = key, e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// Comparer produces a comparison for a resume and a job description.
type Comparer interface {
	Compare(ctx context.Context, resume, job string) model.Comparison
}

// KeyedComparer is a Comparer that can name the cache key of a comparison.
// The key must change whenever the result for the same documents would.
type KeyedComparer interface {
	Comparer
	CacheKey(ctx context.Context, resume, job string) (key string, ok bool)
}

// CachedComparator is a decorator that serves repeated comparisons from a
// ResultCache.
type CachedComparator struct {
	inner KeyedComparer
	cache *ResultCache
}

// NewCachedComparator wraps inner with cache.
func NewCachedComparator(inner KeyedComparer, cache *ResultCache) *CachedComparator {
	return &CachedComparator{inner: inner, cache: cache}
}

// Compare returns the cached result for the pair or computes and stores it.
// A result is stored only if its key was stable across the computation, so a
// taxonomy write racing the compare cannot file a result under a stale key.
func (c *CachedComparator) Compare(ctx context.Context, resume, job string) model.Comparison {
	key, ok := c.inner.CacheKey(ctx, resume, job)
	if !ok {
		return c.inner.Compare(ctx, resume, job)
	}
	if cmp, hit := c.cache.Get(ctx, key); hit {
		return cmp
	}
	cmp := c.inner.Compare(ctx, resume, job)
	if after, ok := c.inner.CacheKey(ctx, resume, job); ok && after == key {
		c.cache.Set(ctx, key, cmp)
	}
	return cmp
}
