package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"nifty-signal/internal/metrics"
)

// unreachable returns a client pointed at a port nothing listens on.
func unreachable() *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestCache_BreakerOpensOnDeadServer(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	c := newCache(unreachable(), Config{MaxFailures: 2, ResetTimeout: time.Minute}, m)
	defer c.Close()

	ctx := context.Background()
	var dst map[string]any
	for i := 0; i < 2; i++ {
		if _, err := c.Get(ctx, "bars:^NSEI:5m0s:48h0m0s", &dst); err == nil {
			t.Fatal("expected dial error")
		}
	}

	_, err := c.Get(ctx, "bars:^NSEI:5m0s:48h0m0s", &dst)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if err := c.Set(ctx, "k", 1, time.Second); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Set: expected ErrCircuitOpen, got %v", err)
	}

	if got := testutil.ToFloat64(m.CacheRequests.WithLabelValues("error")); got != 3 {
		t.Errorf("cache errors = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.CacheBreakerTrips); got != 1 {
		t.Errorf("breaker trips = %v, want 1", got)
	}
}

func TestCache_SetRejectsUnencodable(t *testing.T) {
	c := newCache(unreachable(), Config{}, nil)
	defer c.Close()

	err := c.Set(context.Background(), "k", make(chan int), time.Second)
	if err == nil {
		t.Fatal("expected encode error")
	}
	if errors.Is(err, ErrCircuitOpen) {
		t.Fatal("encode errors must not reach the breaker")
	}
}
