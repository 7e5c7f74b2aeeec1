package model

import (
	"context"
	"time"
)

// ── Collaborator Port Interfaces ──
// These decouple the dashboard from concrete market-data providers
// (Yahoo, SmartAPI, SQLite archive) and storage backends.

// BarSource supplies an OHLC series for one instrument and interval.
// Implementations may return a partial or empty series; callers must not
// assume a minimum length.
type BarSource interface {
	FetchBars(ctx context.Context, req BarRequest) (BarSeries, error)
}

// OptionChainSource supplies an options open interest snapshot.
type OptionChainSource interface {
	FetchOptionChain(ctx context.Context, symbol string) (OptionChain, error)
}

// BarWriter persists fetched bars.
type BarWriter interface {
	SaveBars(ctx context.Context, symbol string, interval time.Duration, bars BarSeries) error
}

// BarReader reads archived bars in ascending TS order.
type BarReader interface {
	ReadBars(ctx context.Context, symbol string, interval time.Duration, since time.Time) (BarSeries, error)
}

// Cache is a TTL-bounded key/value store for JSON-encodable values.
type Cache interface {
	// Get decodes the cached value into dst. found is false on a miss.
	Get(ctx context.Context, key string, dst any) (found bool, err error)

	// Set stores v under key for ttl.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}
