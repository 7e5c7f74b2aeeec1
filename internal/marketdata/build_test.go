package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-signal/config"
	"nifty-signal/internal/model"
)

func testConfig(source string) *config.Config {
	return &config.Config{
		Symbol:      "^NSEI",
		BarSource:   source,
		BarInterval: 5 * time.Minute,
		BarLookback: 48 * time.Hour,
	}
}

func TestNewSource_UnknownSource(t *testing.T) {
	_, _, err := NewSource(testConfig("bloomberg"), Stores{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfig))
}

func TestNewSource_SQLiteNeedsReader(t *testing.T) {
	_, _, err := NewSource(testConfig(config.SourceSQLite), Stores{}, nil)
	require.Error(t, err)
}

func TestNewSource_SQLiteReadsArchive(t *testing.T) {
	r := &stubReader{bars: barsAt(100, 101, 102)}
	src, shutdown, err := NewSource(testConfig(config.SourceSQLite), Stores{Reader: r}, nil)
	require.NoError(t, err)

	got, err := src.FetchBars(context.Background(), model.BarRequest{Symbol: "^NSEI", Interval: 5 * time.Minute, Lookback: time.Hour})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.False(t, r.since.IsZero())
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewSource_WrapsYahooWithDecorators(t *testing.T) {
	src, _, err := NewSource(testConfig(config.SourceYahoo), Stores{
		Cache:    newMemCache(),
		CacheTTL: time.Minute,
		Archive:  &stubWriter{},
	}, nil)
	require.NoError(t, err)

	cached, ok := src.(*CachedSource)
	require.True(t, ok, "outermost decorator should be the cache, got %T", src)
	_, ok = cached.inner.(*ArchivingSource)
	assert.True(t, ok, "cache should wrap the archiver, got %T", cached.inner)
}

func TestNewSource_SmartAPIShutdownBeforeLogin(t *testing.T) {
	cfg := testConfig(config.SourceSmartAPI)
	cfg.AngelClientCode = "A1"
	src, shutdown, err := NewSource(cfg, Stores{}, nil)
	require.NoError(t, err)
	_, ok := src.(*Observed)
	assert.True(t, ok, "got %T", src)
	// no session yet, so nothing is sent upstream
	assert.NoError(t, shutdown(context.Background()))
}
