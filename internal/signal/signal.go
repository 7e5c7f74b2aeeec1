// Package signal turns an OHLC series into trading signals and risk levels.
//
// Two independent strategies are exposed:
//
//   - EvaluateLatest classifies the current state: fast SMA above, below or
//     equal to the slow SMA at the last bar (BUY / SELL / NEUTRAL).
//   - EvaluateCrossovers detects transitions: close crossing the slow SMA
//     between consecutive bars (BUY / SELL, otherwise NONE).
//
// The two answer different questions and are not required to agree at any
// given bar. ComputeRiskLevels scales a target/stoploss pair by ATR.
//
// Nothing in this package logs, retries or caches; every call recomputes
// from the series it is given.
package signal

import (
	"math"
	"time"

	"nifty-signal/internal/indicator"
	"nifty-signal/internal/model"
)

// Signal is a directional trading signal.
type Signal string

const (
	Buy     Signal = "BUY"
	Sell    Signal = "SELL"
	Neutral Signal = "NEUTRAL" // point-in-time: fast == slow
	None    Signal = "NONE"    // edge-triggered: no crossing at this bar
)

// Directional reports whether s is BUY or SELL.
func (s Signal) Directional() bool { return s == Buy || s == Sell }

func (s Signal) valid() bool {
	switch s {
	case Buy, Sell, Neutral, None:
		return true
	}
	return false
}

// Mode identifies which strategy produced a Signal.
type Mode string

const (
	ModeLatest    Mode = "latest"
	ModeCrossover Mode = "crossover"
)

// Reading is a Signal tagged with the strategy and bar that produced it.
type Reading struct {
	Mode   Mode      `json:"mode"`
	Signal Signal    `json:"signal"`
	Index  int       `json:"index"`
	TS     time.Time `json:"ts"`
}

// Defaults for Config.
const (
	DefaultMultiplier      = 1.5
	DefaultPrecision       = 2
	DefaultCrossoverWindow = 20
	maxPrecision           = 8
)

// Config holds every numeric knob of the evaluator.
type Config struct {
	FastWindow      int     `json:"fast_window"`
	SlowWindow      int     `json:"slow_window"`
	ATRWindow       int     `json:"atr_window"`
	CrossoverWindow int     `json:"crossover_window"` // slow SMA window of the edge-triggered detector
	Multiplier      float64 `json:"multiplier"`
	Precision       int     `json:"precision"` // decimal places of target/stoploss
}

// DefaultConfig returns fast=5, slow=20, atr=14, crossover=20, multiplier=1.5, precision=2.
func DefaultConfig() Config {
	return Config{
		FastWindow:      indicator.DefaultFastWindow,
		SlowWindow:      indicator.DefaultSlowWindow,
		ATRWindow:       indicator.DefaultATRWindow,
		CrossoverWindow: DefaultCrossoverWindow,
		Multiplier:      DefaultMultiplier,
		Precision:       DefaultPrecision,
	}
}

// Windows returns the indicator windows used by the point-in-time strategy.
func (c Config) Windows() indicator.Windows {
	return indicator.Windows{Fast: c.FastWindow, Slow: c.SlowWindow, ATR: c.ATRWindow}
}

// Validate rejects non-positive windows, a non-positive multiplier and an
// out-of-range precision. Values are never clamped.
func (c Config) Validate() error {
	if err := c.Windows().Validate(); err != nil {
		return err
	}
	if c.CrossoverWindow <= 0 {
		return &model.ConfigError{Field: "crossover_window", Value: c.CrossoverWindow, Rule: "must be > 0"}
	}
	if err := checkMultiplier(c.Multiplier); err != nil {
		return err
	}
	return checkPrecision(c.Precision)
}

func checkMultiplier(m float64) error {
	if !(m > 0) || math.IsInf(m, 0) {
		return &model.ConfigError{Field: "multiplier", Value: m, Rule: "must be finite and > 0"}
	}
	return nil
}

func checkPrecision(p int) error {
	if p < 0 || p > maxPrecision {
		return &model.ConfigError{Field: "precision", Value: p, Rule: "must be within 0..8"}
	}
	return nil
}
