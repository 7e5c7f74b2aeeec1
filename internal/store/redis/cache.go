// Package redis implements the bar and option-chain cache on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"nifty-signal/internal/metrics"
)

// SignalChannel is the pub/sub channel carrying dashboard snapshots.
const SignalChannel = "pub:signal:latest"

// Config configures the Redis cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // breaker cool-down before a probe
}

// Cache stores JSON values under string keys with a TTL.
// It satisfies model.Cache.
type Cache struct {
	client  *goredis.Client
	breaker *CircuitBreaker
	metrics *metrics.Metrics
}

// New creates a Redis cache and pings the server.
func New(cfg Config, m *metrics.Metrics) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return newCache(client, cfg, m), nil
}

func newCache(client *goredis.Client, cfg Config, m *metrics.Metrics) *Cache {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	cb := NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout)
	cb.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
		m.SetBreakerState(int(to), to == StateOpen && from == StateClosed)
	}
	return &Cache{client: client, breaker: cb, metrics: m}
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Get decodes the value stored at key into dst.
// A missing key reports (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	var raw []byte
	err := c.breaker.Execute(func() error {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = b
		return err
	})
	if err != nil {
		c.metrics.ObserveCache("error")
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if raw == nil {
		c.metrics.ObserveCache("miss")
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.metrics.ObserveCache("error")
		return false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	c.metrics.ObserveCache("hit")
	return true, nil
}

// Set stores v as JSON at key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Publish sends payload on a pub/sub channel.
func (c *Cache) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.breaker.Execute(func() error {
		return c.client.Publish(ctx, channel, payload).Err()
	})
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
