package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/perpintel/engine/internal/cache"
	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/metrics"
)

// cacheTTL covers one candle's worth of the shortest timeframe (§1),
// long enough to dedupe the burst of requests a single pipeline.Run
// cycle issues across signal/feature computation without serving data
// stale past the next close.
const cacheTTL = 30 * time.Minute

// Cached wraps a DataProvider with a cache.Cache keyed on the query
// shape, so repeated fetches for the same (exchange, symbol, interval,
// limit, window) within one cache TTL hit the cache instead of the
// inner provider. Metrics, when non-nil, records hits/misses per
// backend so operators can see whether caching is earning its keep.
type Cached struct {
	inner   DataProvider
	store   cache.Cache
	metrics *metrics.Registry
	backend string
}

// NewCached builds a Cached provider. backend labels the metrics
// series (e.g. "memory" or "redis") so /metrics can distinguish them.
func NewCached(inner DataProvider, store cache.Cache, reg *metrics.Registry, backend string) *Cached {
	return &Cached{inner: inner, store: store, metrics: reg, backend: backend}
}

func cacheKey(op string, q Query) string {
	start, end := int64(-1), int64(-1)
	if q.StartTime != nil {
		start = *q.StartTime
	}
	if q.EndTime != nil {
		end = *q.EndTime
	}
	return fmt.Sprintf("%s:%s:%s:%s:%d:%d:%d", op, q.Exchange, q.Symbol, q.Interval, q.Limit, start, end)
}

func (c *Cached) record(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHits.WithLabelValues(c.backend).Inc()
	} else {
		c.metrics.CacheMisses.WithLabelValues(c.backend).Inc()
	}
}

func fetchCached[T any](ctx context.Context, c *Cached, op string, q Query, fetch func() (T, error)) (T, error) {
	var zero T
	key := cacheKey(op, q)

	if raw, ok, err := c.store.Get(ctx, key); err == nil && ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.record(true)
			return v, nil
		}
	}
	c.record(false)

	v, err := fetch()
	if err != nil {
		return zero, err
	}
	if raw, err := json.Marshal(v); err == nil {
		_ = c.store.Set(ctx, key, raw, cacheTTL)
	}
	return v, nil
}

func (c *Cached) GetPriceHistory(ctx context.Context, q Query) ([]candle.Candle, error) {
	return fetchCached(ctx, c, "price", q, func() ([]candle.Candle, error) { return c.inner.GetPriceHistory(ctx, q) })
}

func (c *Cached) GetOIHistory(ctx context.Context, q Query) ([]candle.OIPoint, error) {
	return fetchCached(ctx, c, "oi", q, func() ([]candle.OIPoint, error) { return c.inner.GetOIHistory(ctx, q) })
}

func (c *Cached) GetFundingHistory(ctx context.Context, q Query) ([]candle.FundingPoint, error) {
	return fetchCached(ctx, c, "funding", q, func() ([]candle.FundingPoint, error) { return c.inner.GetFundingHistory(ctx, q) })
}

func (c *Cached) GetTakerBuySellVolume(ctx context.Context, q Query) ([]candle.TakerVolumePoint, error) {
	return fetchCached(ctx, c, "taker", q, func() ([]candle.TakerVolumePoint, error) { return c.inner.GetTakerBuySellVolume(ctx, q) })
}
