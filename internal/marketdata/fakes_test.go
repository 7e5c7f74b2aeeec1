package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"nifty-signal/internal/model"
)

var t0 = time.Date(2026, 3, 2, 3, 45, 0, 0, time.UTC)

func barsAt(closes ...float64) model.BarSeries {
	out := make(model.BarSeries, len(closes))
	for i, c := range closes {
		out[i] = model.Bar{TS: t0.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return out
}

type stubSource struct {
	bars  model.BarSeries
	err   error
	calls int
}

func (s *stubSource) FetchBars(ctx context.Context, req model.BarRequest) (model.BarSeries, error) {
	s.calls++
	return s.bars, s.err
}

// memCache is an in-memory model.Cache that round-trips through JSON.
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttls[key] = ttl
	return nil
}

type stubWriter struct {
	saved    model.BarSeries
	symbol   string
	interval time.Duration
	err      error
}

func (w *stubWriter) SaveBars(ctx context.Context, symbol string, interval time.Duration, bars model.BarSeries) error {
	w.symbol, w.interval, w.saved = symbol, interval, bars
	return w.err
}

type stubReader struct {
	since time.Time
	bars  model.BarSeries
}

func (r *stubReader) ReadBars(ctx context.Context, symbol string, interval time.Duration, since time.Time) (model.BarSeries, error) {
	r.since = since
	return r.bars, nil
}

var errUpstream = errors.New("upstream 502")
