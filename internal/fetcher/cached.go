package fetcher

import (
	"context"
	"time"

	"github.com/robinvenneman/flux-challenge/internal/metrics"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"go.uber.org/zap"
)

// RecordCache is the subset of roster.Client used by CachedFetcher.
type RecordCache interface {
	GetRecord(ctx context.Context, id int) (*roster.Record, error)
	PutRecord(ctx context.Context, r *roster.Record, ttl time.Duration) error
}

// CachedFetcher serves records from Redis when present and fills the cache
// from the wrapped fetcher otherwise. Cache failures never fail a fetch.
type CachedFetcher struct {
	next    Fetcher
	cache   RecordCache
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCached wraps next with a read-through cache.
func NewCached(next Fetcher, cache RecordCache, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *CachedFetcher {
	return &CachedFetcher{
		next:    next,
		cache:   cache,
		ttl:     ttl,
		logger:  logger.Named("cache"),
		metrics: m,
	}
}

// Fetch returns the cached record, or fetches and caches it.
func (c *CachedFetcher) Fetch(ctx context.Context, id int) (roster.Record, error) {
	cached, err := c.cache.GetRecord(ctx, id)
	switch {
	case err == nil:
		c.metrics.ObserveFetch("cache_hit", 0)
		c.logger.Debug("cache hit", zap.Int("record_id", id))
		return *cached, nil
	case !roster.IsNotFound(err):
		c.logger.Warn("cache read failed", zap.Int("record_id", id), zap.Error(err))
	}

	rec, err := c.next.Fetch(ctx, id)
	if err != nil {
		return roster.Record{}, err
	}

	if err := c.cache.PutRecord(ctx, &rec, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.Int("record_id", id), zap.Error(err))
	}

	return rec, nil
}
