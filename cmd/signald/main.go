// cmd/signald runs the NIFTY signal dashboard: it refreshes bars on an
// interval, evaluates the SMA signals and risk levels, pushes snapshots to
// WebSocket viewers and sends crossover alerts.
//
// Usage:
//
//	BAR_SOURCE=yahoo HTTP_ADDR=:8080 go run ./cmd/signald
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"nifty-signal/config"
	"nifty-signal/internal/dashboard"
	"nifty-signal/internal/logger"
	"nifty-signal/internal/marketdata"
	"nifty-signal/internal/markethours"
	"nifty-signal/internal/metrics"
	"nifty-signal/internal/model"
	"nifty-signal/internal/notification"
	"nifty-signal/internal/optionchain"
	"nifty-signal/internal/signal"
	redisstore "nifty-signal/internal/store/redis"
	sqlitestore "nifty-signal/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[signald] starting...")

	// ---- Load config from env ----
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[signald] %v", err)
	}
	logger.Init("signald", logger.ParseLevel(cfg.LogLevel))
	if err := markethours.AddHolidays(cfg.ExtraHolidays...); err != nil {
		log.Fatalf("[signald] %v", err)
	}

	// ---- Setup metrics & health ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus(3 * cfg.RefreshInterval)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, reg)
	metricsSrv.Start()

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite archive ----
	var stores marketdata.Stores
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		if cfg.BarSource == config.SourceSQLite {
			log.Fatalf("[signald] sqlite init failed: %v", err)
		}
		log.Printf("[signald] WARNING: sqlite init failed: %v (continuing without archive)", err)
	} else {
		defer sqlWriter.Close()
		health.SetSQLiteOK(true)
		if cfg.BarSource == config.SourceSQLite {
			reader, err := sqlitestore.NewReader(cfg.SQLitePath)
			if err != nil {
				log.Fatalf("[signald] sqlite reader failed: %v", err)
			}
			defer reader.Close()
			stores.Reader = reader
		} else {
			stores.Archive = sqlWriter
		}
	}

	// ---- Redis cache ----
	cache, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}, prom)
	if err != nil {
		log.Printf("[signald] WARNING: redis init failed: %v (continuing without cache)", err)
	} else {
		defer cache.Close()
		health.SetRedisConnected(true)
		stores.Cache = cache
		stores.CacheTTL = cfg.BarCacheTTL
	}

	// ---- Periodic liveness checks ----
	health.StartLivenessChecker(ctx, cacheClient(cache), sqlDB(sqlWriter), 10*time.Second)

	// ---- Market data ----
	bars, closeSource, err := marketdata.NewSource(cfg, stores, prom)
	if err != nil {
		log.Fatalf("[signald] %v", err)
	}
	var chains model.OptionChainSource = optionchain.NewNSESource(cfg.OptionChainURL)
	if cache != nil {
		chains = optionchain.NewCached(chains, cache, cfg.OptionChainTTL, prom)
	}

	// ---- Signal core ----
	evaluator, err := signal.NewEvaluator(cfg.SignalConfig())
	if err != nil {
		log.Fatalf("[signald] %v", err)
	}

	// ---- Alerts ----
	notifiers := notification.Multi{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
		log.Println("[signald] telegram alerts enabled")
	}
	if cfg.AlertWebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.AlertWebhookURL))
		log.Println("[signald] webhook alerts enabled")
	}

	// ---- Dashboard ----
	hub := dashboard.NewHub(prom)
	deps := dashboard.Deps{
		Bars:      bars,
		Chains:    chains,
		Evaluator: evaluator,
		Notifier:  notifiers,
		Metrics:   prom,
		Health:    health,
		Hub:       hub,
	}
	if cache != nil {
		deps.Publisher = cache
		deps.Channel = redisstore.SignalChannel
	}
	svc, err := dashboard.NewService(dashboard.Options{
		Request:         cfg.BarRequest(),
		DisplaySymbol:   cfg.Symbol,
		OptionSymbol:    cfg.OptionSymbol,
		OptionTopN:      cfg.OptionTopN,
		ChartPadding:    cfg.ChartPadding,
		MaxCrossovers:   cfg.MaxCrossovers,
		RefreshInterval: cfg.RefreshInterval,
	}, deps)
	if err != nil {
		log.Fatalf("[signald] %v", err)
	}

	mux := http.NewServeMux()
	dashboard.RegisterRoutes(mux, svc, hub)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("[signald] http listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[signald] http server error: %v", err)
		}
	}()

	go svc.Run(ctx)
	log.Printf("[signald] ready: symbol=%s source=%s refresh=%s (%s)",
		cfg.Symbol, cfg.BarSource, cfg.RefreshInterval, markethours.StatusString(time.Now()))

	// ---- Wait for shutdown ----
	<-sigCh
	log.Println("[signald] shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)
	if err := closeSource(shutdownCtx); err != nil {
		log.Printf("[signald] %v", err)
	}
	metricsSrv.Stop(shutdownCtx)
	log.Println("[signald] stopped")
}
