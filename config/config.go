// Package config loads service configuration from the environment.
// A .env file in the working directory is applied first when present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"nifty-signal/internal/model"
	"nifty-signal/internal/signal"
)

// Bar source names accepted by BAR_SOURCE.
const (
	SourceYahoo    = "yahoo"
	SourceSmartAPI = "smartapi"
	SourceSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Instrument and bars
	Symbol          string        `envconfig:"SYMBOL" default:"^NSEI"`
	BarSource       string        `envconfig:"BAR_SOURCE" default:"yahoo"`
	BarInterval     time.Duration `envconfig:"BAR_INTERVAL" default:"5m"`
	BarLookback     time.Duration `envconfig:"BAR_LOOKBACK" default:"48h"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"60s"`

	// Signal core
	FastWindow      int     `envconfig:"FAST_WINDOW" default:"5"`
	SlowWindow      int     `envconfig:"SLOW_WINDOW" default:"20"`
	ATRWindow       int     `envconfig:"ATR_WINDOW" default:"14"`
	CrossoverWindow int     `envconfig:"CROSSOVER_WINDOW" default:"20"`
	Multiplier      float64 `envconfig:"RISK_MULTIPLIER" default:"1.5"`
	Precision       int     `envconfig:"RISK_PRECISION" default:"2"`

	// Angel One SmartAPI (only required when BAR_SOURCE=smartapi)
	AngelAPIKey     string `envconfig:"ANGEL_API_KEY"`
	AngelClientCode string `envconfig:"ANGEL_CLIENT_CODE"`
	AngelPassword   string `envconfig:"ANGEL_PASSWORD"`
	AngelTOTPSecret string `envconfig:"ANGEL_TOTP_SECRET"`
	AngelExchange   string `envconfig:"ANGEL_EXCHANGE" default:"NSE"`
	AngelToken      string `envconfig:"ANGEL_SYMBOL_TOKEN" default:"99926000"` // NIFTY 50 index

	// Option chain
	OptionSymbol   string        `envconfig:"OPTION_SYMBOL" default:"NIFTY"`
	OptionChainURL string        `envconfig:"OPTION_CHAIN_URL" default:"https://www.nseindia.com"`
	OptionChainTTL time.Duration `envconfig:"OPTION_CHAIN_TTL" default:"300s"`
	OptionTopN     int           `envconfig:"OPTION_TOP_N" default:"10"`

	// Infrastructure
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	BarCacheTTL   time.Duration `envconfig:"BAR_CACHE_TTL" default:"60s"`
	SQLitePath    string        `envconfig:"SQLITE_PATH" default:"data/bars.db"`
	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr   string        `envconfig:"METRICS_ADDR" default:":9090"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`

	// Dashboard
	ChartPadding  float64  `envconfig:"CHART_PADDING" default:"30"`
	MaxCrossovers int      `envconfig:"MAX_CROSSOVERS" default:"10"`
	ExtraHolidays []string `envconfig:"EXTRA_HOLIDAYS"` // YYYY-MM-DD,...

	// Alerts
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
	AlertWebhookURL  string `envconfig:"ALERT_WEBHOOK_URL"`
}

// Load reads configuration from a .env file (if any) and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.BarSource = strings.ToLower(strings.TrimSpace(cfg.BarSource))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements and the signal configuration.
func (c *Config) Validate() error {
	switch c.BarSource {
	case SourceYahoo, SourceSQLite:
	case SourceSmartAPI:
		for name, v := range map[string]string{
			"ANGEL_API_KEY":     c.AngelAPIKey,
			"ANGEL_CLIENT_CODE": c.AngelClientCode,
			"ANGEL_PASSWORD":    c.AngelPassword,
			"ANGEL_TOTP_SECRET": c.AngelTOTPSecret,
		} {
			if v == "" {
				return fmt.Errorf("config: %s is required when BAR_SOURCE=smartapi", name)
			}
		}
	default:
		return &model.ConfigError{Field: "BAR_SOURCE", Value: c.BarSource, Rule: "must be yahoo, smartapi or sqlite"}
	}
	if c.BarInterval <= 0 || c.BarLookback <= 0 {
		return &model.ConfigError{Field: "BAR_INTERVAL/BAR_LOOKBACK", Value: c.BarInterval, Rule: "must be > 0"}
	}
	return c.SignalConfig().Validate()
}

// SignalConfig maps the environment to the evaluator configuration.
func (c *Config) SignalConfig() signal.Config {
	return signal.Config{
		FastWindow:      c.FastWindow,
		SlowWindow:      c.SlowWindow,
		ATRWindow:       c.ATRWindow,
		CrossoverWindow: c.CrossoverWindow,
		Multiplier:      c.Multiplier,
		Precision:       c.Precision,
	}
}

// BarRequest returns the bar request for the configured source.
// SmartAPI addresses the index by symbol token rather than ticker.
func (c *Config) BarRequest() model.BarRequest {
	symbol := c.Symbol
	if c.BarSource == SourceSmartAPI {
		symbol = c.AngelToken
	}
	return model.BarRequest{Symbol: symbol, Interval: c.BarInterval, Lookback: c.BarLookback}
}
