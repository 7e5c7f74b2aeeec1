package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-signal/internal/metrics"
	"nifty-signal/internal/model"
)

var req5m = model.BarRequest{Symbol: "^NSEI", Interval: 5 * time.Minute, Lookback: 48 * time.Hour}

func TestCachedSource_MissThenHit(t *testing.T) {
	src := &stubSource{bars: barsAt(100, 101, 102)}
	cache := newMemCache()
	cs := NewCachedSource(src, cache, time.Minute)
	ctx := context.Background()

	first, err := cs.FetchBars(ctx, req5m)
	require.NoError(t, err)
	second, err := cs.FetchBars(ctx, req5m)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls, "second fetch should be served from cache")
	assert.Equal(t, first.Closes(), second.Closes())
	assert.True(t, second[0].TS.Equal(t0))
	assert.Equal(t, time.Minute, cache.ttls["bars:^NSEI:5m0s:48h0m0s"])
}

func TestCachedSource_CacheFailureFallsThrough(t *testing.T) {
	src := &stubSource{bars: barsAt(100)}
	cache := newMemCache()
	cache.getErr = errors.New("redis circuit breaker is open")
	cache.setErr = cache.getErr

	bars, err := NewCachedSource(src, cache, time.Minute).FetchBars(context.Background(), req5m)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 1, src.calls)
}

func TestCachedSource_DoesNotCacheEmptyOrErrors(t *testing.T) {
	cache := newMemCache()
	_, err := NewCachedSource(&stubSource{err: errUpstream}, cache, time.Minute).FetchBars(context.Background(), req5m)
	assert.ErrorIs(t, err, errUpstream)

	_, err = NewCachedSource(&stubSource{}, cache, time.Minute).FetchBars(context.Background(), req5m)
	require.NoError(t, err)
	assert.Empty(t, cache.data)
}

func TestArchivingSource_SavesFetchedBars(t *testing.T) {
	w := &stubWriter{}
	bars, err := NewArchivingSource(&stubSource{bars: barsAt(1, 2)}, w).FetchBars(context.Background(), req5m)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, "^NSEI", w.symbol)
	assert.Equal(t, 5*time.Minute, w.interval)
	assert.Len(t, w.saved, 2)
}

func TestArchivingSource_WriteFailureIsNotFatal(t *testing.T) {
	w := &stubWriter{err: errors.New("disk full")}
	bars, err := NewArchivingSource(&stubSource{bars: barsAt(1)}, w).FetchBars(context.Background(), req5m)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestArchiveSource_ReadsLookbackWindow(t *testing.T) {
	r := &stubReader{bars: barsAt(5, 6)}
	a := NewArchiveSource(r)
	now := t0.Add(72 * time.Hour)
	a.now = func() time.Time { return now }

	bars, err := a.FetchBars(context.Background(), req5m)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.True(t, r.since.Equal(now.Add(-48*time.Hour)), "since = %v", r.since)
}

func TestObserved_RecordsFailures(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	_, err := NewObserved(NameYahoo, &stubSource{err: errUpstream}, m).FetchBars(context.Background(), req5m)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues(NameYahoo)))
}

func TestNormalize_DropsGapsAndSorts(t *testing.T) {
	bars := barsAt(10, 11, 12)
	bars[0], bars[2] = bars[2], bars[0]
	bars = append(bars, model.Bar{TS: t0.Add(time.Hour)}) // all-zero gap row

	got := normalize(bars)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{10, 11, 12}, got.Closes())
}
