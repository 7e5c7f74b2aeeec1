// Package marketdata provides OHLC bar sources for the signal service:
// Yahoo Finance, Angel One SmartAPI and the local SQLite archive, plus
// caching, archiving and instrumentation decorators.
package marketdata

import (
	"context"
	"sort"
	"time"

	"nifty-signal/internal/metrics"
	"nifty-signal/internal/model"
)

// Source names used in logs and metric labels.
const (
	NameYahoo    = "yahoo"
	NameSmartAPI = "smartapi"
	NameArchive  = "sqlite"
)

// normalize drops bars with a non-positive price and sorts ascending by TS.
// Upstreams report session gaps as zero or missing prices.
func normalize(bars model.BarSeries) model.BarSeries {
	out := bars[:0]
	for _, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out
}

// Observed records fetch latency and failures for a source.
type Observed struct {
	name    string
	inner   model.BarSource
	metrics *metrics.Metrics
}

// NewObserved wraps src so every fetch is recorded under name.
func NewObserved(name string, src model.BarSource, m *metrics.Metrics) *Observed {
	return &Observed{name: name, inner: src, metrics: m}
}

// FetchBars delegates to the wrapped source.
func (o *Observed) FetchBars(ctx context.Context, req model.BarRequest) (model.BarSeries, error) {
	start := time.Now()
	bars, err := o.inner.FetchBars(ctx, req)
	o.metrics.ObserveFetch(o.name, time.Since(start), err)
	return bars, err
}
