package optionchain

import (
	"context"
	"log"
	"time"

	"nifty-signal/internal/metrics"
	"nifty-signal/internal/model"
)

// Cached serves option chain snapshots from a TTL cache.
type Cached struct {
	inner   model.OptionChainSource
	cache   model.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewCached wraps src with cache c; snapshots live for ttl.
func NewCached(src model.OptionChainSource, c model.Cache, ttl time.Duration, m *metrics.Metrics) *Cached {
	return &Cached{inner: src, cache: c, ttl: ttl, metrics: m}
}

func cacheKey(symbol string) string { return "optionchain:" + symbol }

// FetchOptionChain returns a cached snapshot or fetches a fresh one.
func (c *Cached) FetchOptionChain(ctx context.Context, symbol string) (model.OptionChain, error) {
	key := cacheKey(symbol)

	var chain model.OptionChain
	found, err := c.cache.Get(ctx, key, &chain)
	if err != nil {
		log.Printf("[optionchain] cache get %s: %v", key, err)
	} else if found {
		return chain, nil
	}

	start := time.Now()
	chain, err = c.inner.FetchOptionChain(ctx, symbol)
	c.metrics.ObserveFetch("nse", time.Since(start), err)
	if err != nil {
		return model.OptionChain{}, err
	}
	if len(chain.Strikes) > 0 {
		if err := c.cache.Set(ctx, key, chain, c.ttl); err != nil {
			log.Printf("[optionchain] cache set %s: %v", key, err)
		}
	}
	return chain, nil
}
