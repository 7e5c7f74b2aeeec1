package config

import (
	"errors"
	"testing"
	"time"

	"nifty-signal/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Symbol != "^NSEI" || cfg.BarSource != SourceYahoo {
		t.Errorf("unexpected instrument defaults: %+v", cfg)
	}
	if cfg.BarInterval != 5*time.Minute || cfg.BarLookback != 48*time.Hour {
		t.Errorf("unexpected bar defaults: %v / %v", cfg.BarInterval, cfg.BarLookback)
	}
	sc := cfg.SignalConfig()
	if sc.FastWindow != 5 || sc.SlowWindow != 20 || sc.ATRWindow != 14 || sc.CrossoverWindow != 20 {
		t.Errorf("unexpected windows: %+v", sc)
	}
	if sc.Multiplier != 1.5 || sc.Precision != 2 {
		t.Errorf("unexpected risk defaults: %+v", sc)
	}
	if cfg.OptionChainTTL != 5*time.Minute || cfg.OptionTopN != 10 {
		t.Errorf("unexpected option chain defaults: %v / %d", cfg.OptionChainTTL, cfg.OptionTopN)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FAST_WINDOW", "9")
	t.Setenv("SLOW_WINDOW", "21")
	t.Setenv("RISK_MULTIPLIER", "2.0")
	t.Setenv("BAR_SOURCE", " SQLite ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FastWindow != 9 || cfg.SlowWindow != 21 || cfg.Multiplier != 2.0 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.BarSource != SourceSQLite {
		t.Errorf("BarSource = %q", cfg.BarSource)
	}
}

func TestLoad_RejectsInvalidSignalConfig(t *testing.T) {
	t.Setenv("SLOW_WINDOW", "0")
	if _, err := Load(); !errors.Is(err, model.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoad_RejectsNonPositiveMultiplier(t *testing.T) {
	t.Setenv("RISK_MULTIPLIER", "-1")
	if _, err := Load(); !errors.Is(err, model.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoad_SmartAPIRequiresCredentials(t *testing.T) {
	t.Setenv("BAR_SOURCE", "smartapi")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing credential error")
	}

	t.Setenv("ANGEL_API_KEY", "k")
	t.Setenv("ANGEL_CLIENT_CODE", "c")
	t.Setenv("ANGEL_PASSWORD", "p")
	t.Setenv("ANGEL_TOTP_SECRET", "JBSWY3DPEHPK3PXP")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.BarRequest().Symbol; got != "99926000" {
		t.Errorf("smartapi request symbol = %q, want index token", got)
	}
}

func TestLoad_UnknownSource(t *testing.T) {
	t.Setenv("BAR_SOURCE", "bloomberg")
	if _, err := Load(); !errors.Is(err, model.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoad_DashboardSettings(t *testing.T) {
	t.Setenv("CHART_PADDING", "12.5")
	t.Setenv("EXTRA_HOLIDAYS", "2026-11-09,2026-12-25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChartPadding != 12.5 || cfg.MaxCrossovers != 10 {
		t.Errorf("unexpected dashboard settings: %v / %d", cfg.ChartPadding, cfg.MaxCrossovers)
	}
	if len(cfg.ExtraHolidays) != 2 || cfg.ExtraHolidays[1] != "2026-12-25" {
		t.Errorf("ExtraHolidays = %v", cfg.ExtraHolidays)
	}
}
