package marketdata

import (
	"context"
	"log"
	"time"

	"nifty-signal/internal/model"
)

// CachedSource serves repeated requests from a TTL cache.
// Cache errors degrade to a direct fetch.
type CachedSource struct {
	inner model.BarSource
	cache model.Cache
	ttl   time.Duration
}

// NewCachedSource wraps src with cache c; entries live for ttl.
func NewCachedSource(src model.BarSource, c model.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{inner: src, cache: c, ttl: ttl}
}

// FetchBars returns the cached series for req or fetches and stores it.
func (c *CachedSource) FetchBars(ctx context.Context, req model.BarRequest) (model.BarSeries, error) {
	key := req.CacheKey()

	var cached model.BarSeries
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Printf("[marketdata] cache get %s: %v", key, err)
	} else if found {
		return cached, nil
	}

	bars, err := c.inner.FetchBars(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		if err := c.cache.Set(ctx, key, bars, c.ttl); err != nil {
			log.Printf("[marketdata] cache set %s: %v", key, err)
		}
	}
	return bars, nil
}
