package model

import (
	"math"
	"time"
)

// Bar is a single OHLC observation for one instrument.
// Prices are in rupees (index points for NIFTY).
type Bar struct {
	TS     time.Time `json:"ts"` // bar start time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Validate checks that prices are finite and positive and that the OHLC
// ordering holds.
func (b Bar) Validate() error {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &MalformedBarError{Index: -1, TS: b.TS, Reason: "non-finite price"}
		}
	}
	switch {
	case b.Low <= 0:
		return &MalformedBarError{Index: -1, TS: b.TS, Reason: "non-positive price"}
	case b.High < b.Low:
		return &MalformedBarError{Index: -1, TS: b.TS, Reason: "high < low"}
	case b.High < b.Open || b.High < b.Close:
		return &MalformedBarError{Index: -1, TS: b.TS, Reason: "high below open/close"}
	case b.Low > b.Open || b.Low > b.Close:
		return &MalformedBarError{Index: -1, TS: b.TS, Reason: "low above open/close"}
	}
	return nil
}

// BarSeries is an ordered sequence of bars, ascending by TS.
// Duplicate timestamps are tolerated; ordering is the caller's responsibility.
type BarSeries []Bar

// Validate checks every bar and reports the first malformed one with its index.
func (s BarSeries) Validate() error {
	for i := range s {
		if err := s[i].Validate(); err != nil {
			mb := err.(*MalformedBarError)
			mb.Index = i
			return mb
		}
	}
	return nil
}

// Closes returns the close prices as a new slice.
func (s BarSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

// Last returns the most recent bar. ok is false for an empty series.
func (s BarSeries) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// BarRequest describes which bars a BarSource should return.
type BarRequest struct {
	Symbol   string        `json:"symbol"`   // e.g. "^NSEI" or a broker token
	Interval time.Duration `json:"interval"` // bar width, e.g. 5m
	Lookback time.Duration `json:"lookback"` // how far back from now
}

// CacheKey returns "bars:{symbol}:{interval}:{lookback}".
func (r BarRequest) CacheKey() string {
	return "bars:" + r.Symbol + ":" + r.Interval.String() + ":" + r.Lookback.String()
}
