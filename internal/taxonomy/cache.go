package taxonomy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amishk599/keymatch/internal/model"
)

// DefaultTTL is how long a snapshot is served before the store is re-read.
const DefaultTTL = 5 * time.Minute

// Source is the part of the store the cache reads from and writes through.
type Source interface {
	model.TaxonomyStore
	model.RuleStore
}

// Cache serves taxonomy snapshots with a TTL. Writes made through the cache
// invalidate the snapshot before they return, so a successful write is never
// followed by a stale read.
type Cache struct {
	src    Source
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewCache creates a cache over src. A non-positive ttl uses DefaultTTL.
func NewCache(src Source, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		src:    src,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot returns the current snapshot, reloading it from the store when it
// is missing or older than the TTL. Load failures are returned as
// *model.LookupError.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap != nil && c.fresh(snap) {
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot != nil && c.fresh(c.snapshot) {
		return c.snapshot, nil
	}

	keywords, err := c.src.AllKeywords(ctx, model.KeywordFilter{})
	if err != nil {
		return nil, &model.LookupError{Op: "all keywords", Err: err}
	}
	rules, err := c.src.AllMatchingRules(ctx)
	if err != nil {
		return nil, &model.LookupError{Op: "matching rules", Err: err}
	}

	c.snapshot = NewSnapshot(keywords, rules, c.now())
	c.logger.Debug("taxonomy snapshot loaded",
		"keywords", c.snapshot.Len(),
		"rules", len(rules),
	)
	return c.snapshot, nil
}

func (c *Cache) fresh(s *Snapshot) bool {
	return c.now().Sub(s.loadedAt) < c.ttl
}

// Invalidate drops the cached snapshot; the next Snapshot call reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}

// UpsertKeyword writes k through to the store and invalidates the snapshot.
func (c *Cache) UpsertKeyword(ctx context.Context, k *model.Keyword) error {
	if err := c.src.UpsertKeyword(ctx, k); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// AddMatchingRule writes r through to the store and invalidates the snapshot.
func (c *Cache) AddMatchingRule(ctx context.Context, r *model.MatchingRule) error {
	if err := c.src.AddMatchingRule(ctx, r); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// AllKeywords reads directly from the store; admin listings bypass the snapshot
// so they can include deprecated entries.
func (c *Cache) AllKeywords(ctx context.Context, filter model.KeywordFilter) ([]model.Keyword, error) {
	return c.src.AllKeywords(ctx, filter)
}

// KeywordByText reads directly from the store.
func (c *Cache) KeywordByText(ctx context.Context, text string) (*model.Keyword, error) {
	return c.src.KeywordByText(ctx, text)
}
