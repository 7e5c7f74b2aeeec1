package signal

import (
	"math"

	"github.com/shopspring/decimal"

	"nifty-signal/internal/indicator"
	"nifty-signal/internal/model"
)

// RiskLevels is a target/stoploss pair for the current signal.
type RiskLevels struct {
	Target   float64 `json:"target"`
	Stoploss float64 `json:"stoploss"`
}

// ComputeRiskLevels scales the distance from close by multiplier·ATR.
//
//	BUY:          target = close + m·atr, stoploss = close - m·atr
//	SELL:         target = close - m·atr, stoploss = close + m·atr
//	NEUTRAL/NONE: target = stoploss = close
//
// Directional levels are rounded half away from zero to precision decimals.
// The non-directional pair is the close itself, unrounded, so "no trade" is
// always recognisable as target == stoploss == close.
func ComputeRiskLevels(close float64, atr indicator.Value, multiplier float64, sig Signal, precision int) (RiskLevels, error) {
	if err := checkMultiplier(multiplier); err != nil {
		return RiskLevels{}, err
	}
	if err := checkPrecision(precision); err != nil {
		return RiskLevels{}, err
	}
	if !sig.valid() {
		return RiskLevels{}, &model.ConfigError{Field: "signal", Value: sig, Rule: "must be BUY, SELL, NEUTRAL or NONE"}
	}
	if !atr.OK {
		return RiskLevels{}, &model.InsufficientDataError{What: "atr"}
	}
	if !finite(close) {
		return RiskLevels{}, &model.MalformedBarError{Index: -1, Reason: "non-finite close"}
	}
	if !finite(atr.V) || atr.V < 0 {
		return RiskLevels{}, &model.MalformedBarError{Index: -1, Reason: "atr out of range"}
	}

	if !sig.Directional() {
		return RiskLevels{Target: close, Stoploss: close}, nil
	}

	c := decimal.NewFromFloat(close)
	offset := decimal.NewFromFloat(multiplier).Mul(decimal.NewFromFloat(atr.V))
	up := c.Add(offset).Round(int32(precision)).InexactFloat64()
	down := c.Sub(offset).Round(int32(precision)).InexactFloat64()
	if !finite(up) || !finite(down) {
		return RiskLevels{}, &model.MalformedBarError{Index: -1, Reason: "risk levels overflow float64"}
	}

	if sig == Buy {
		return RiskLevels{Target: up, Stoploss: down}, nil
	}
	return RiskLevels{Target: down, Stoploss: up}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
