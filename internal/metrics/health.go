package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastRefresh    time.Time `json:"last_refresh"`
	LastError      string    `json:"last_error"`
	BarsLoaded     int       `json:"bars_loaded"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`

	// A refresh older than this marks the service degraded.
	staleAfter time.Duration
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(staleAfter time.Duration) *HealthStatus {
	return &HealthStatus{
		StartedAt:  time.Now(),
		staleAfter: staleAfter,
	}
}

// SetRedisConnected records Redis connectivity at startup.
func (h *HealthStatus) SetRedisConnected(ok bool) {
	h.mu.Lock()
	h.RedisConnected = ok
	h.mu.Unlock()
}

// SetSQLiteOK records archive availability at startup.
func (h *HealthStatus) SetSQLiteOK(ok bool) {
	h.mu.Lock()
	h.SQLiteOK = ok
	h.mu.Unlock()
}

// RecordRefresh stores the outcome of a dashboard refresh.
func (h *HealthStatus) RecordRefresh(at time.Time, bars int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastRefresh = at
	h.BarsLoaded = bars
	if err != nil {
		h.LastError = err.Error()
	} else {
		h.LastError = ""
	}
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the archive database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil dependencies are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	stale := h.LastRefresh.IsZero() || (h.staleAfter > 0 && time.Since(h.LastRefresh) > h.staleAfter)
	if stale || h.LastError != "" {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	refreshAge := ""
	if !h.LastRefresh.IsZero() {
		refreshAge = time.Since(h.LastRefresh).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		LastRefresh     string  `json:"last_refresh"`
		RefreshAge      string  `json:"refresh_age"`
		LastError       string  `json:"last_error,omitempty"`
		BarsLoaded      int     `json:"bars_loaded"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		LastRefresh:     h.LastRefresh.Format(time.RFC3339),
		RefreshAge:      refreshAge,
		LastError:       h.LastError,
		BarsLoaded:      h.BarsLoaded,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server backed by gatherer.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
