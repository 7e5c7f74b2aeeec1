// Package dashboard assembles the signal dashboard: it refreshes bars,
// evaluates signals, fetches the option chain and serves the result over
// REST and WebSocket.
package dashboard

import (
	"time"

	"nifty-signal/internal/indicator"
	"nifty-signal/internal/markethours"
	"nifty-signal/internal/model"
	"nifty-signal/internal/signal"
)

// ChartPoint is one plotted bar.
type ChartPoint struct {
	TS      time.Time       `json:"ts"`
	Close   float64         `json:"close"`
	SMAFast indicator.Value `json:"sma_fast"`
	SMASlow indicator.Value `json:"sma_slow"`
}

// SignalView is the point-in-time signal with its risk levels.
type SignalView struct {
	Signal     signal.Signal `json:"signal"`
	BarTS      time.Time     `json:"bar_ts"`
	Close      float64       `json:"close"`
	Target     float64       `json:"target"`
	Stoploss   float64       `json:"stoploss"`
	ATR        float64       `json:"atr"`
	Multiplier float64       `json:"multiplier"`
}

// Warning is a non-fatal problem surfaced to the viewer.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Warning kinds beyond model.ErrorKind values.
const (
	WarnMarketClosed = "market_closed"
	WarnOptionChain  = "option_chain"
)

// Snapshot is the complete dashboard state after one refresh.
type Snapshot struct {
	Symbol      string             `json:"symbol"`
	GeneratedAt time.Time          `json:"generated_at"`
	TraceID     string             `json:"trace_id"`
	Market      markethours.Status `json:"market"`

	LatestPrice float64      `json:"latest_price"`
	LatestBarTS time.Time    `json:"latest_bar_ts"`
	Bars        int          `json:"bars"`
	Chart       []ChartPoint `json:"chart"`
	YDomain     [2]float64   `json:"y_domain"`

	Signal     *SignalView      `json:"signal"`
	Crossovers []signal.Reading `json:"crossovers"`

	OptionExpiry string               `json:"option_expiry,omitempty"`
	OptionChain  []model.OptionStrike `json:"option_chain"`
	PutCallRatio float64              `json:"put_call_ratio"`

	Warnings []Warning `json:"warnings"`
}

// HasData reports whether the snapshot carries any bars.
func (s Snapshot) HasData() bool { return s.Bars > 0 }

func (s *Snapshot) warn(kind, msg string) {
	s.Warnings = append(s.Warnings, Warning{Kind: kind, Message: msg})
}

// setBars fills the price and chart fields. The y-domain is centred on the
// latest close with padding either side.
func (s *Snapshot) setBars(bars model.BarSeries, padding float64) {
	s.Bars = len(bars)
	last, ok := bars.Last()
	if !ok {
		return
	}
	s.LatestPrice = last.Close
	s.LatestBarTS = last.TS
	s.YDomain = [2]float64{last.Close - padding, last.Close + padding}

	s.Chart = make([]ChartPoint, len(bars))
	for i, b := range bars {
		s.Chart[i] = ChartPoint{TS: b.TS, Close: b.Close}
	}
}

// setResult attaches the evaluation. Indicator columns are added to the
// chart and only the most recent maxCrossovers emissions are kept.
func (s *Snapshot) setResult(res signal.Result, multiplier float64, maxCrossovers int) {
	s.Signal = &SignalView{
		Signal:     res.Latest.Signal,
		BarTS:      res.Latest.TS,
		Close:      res.LastClose,
		Target:     res.Levels.Target,
		Stoploss:   res.Levels.Stoploss,
		ATR:        res.LastATR,
		Multiplier: multiplier,
	}
	for i := range s.Chart {
		if i < len(res.Derived.SMAFast) {
			s.Chart[i].SMAFast = res.Derived.SMAFast[i]
			s.Chart[i].SMASlow = res.Derived.SMASlow[i]
		}
	}
	xs := res.Crossovers
	if maxCrossovers > 0 && len(xs) > maxCrossovers {
		xs = xs[len(xs)-maxCrossovers:]
	}
	s.Crossovers = append([]signal.Reading(nil), xs...)
}

// setOptionChain attaches the top n strikes.
func (s *Snapshot) setOptionChain(chain model.OptionChain, n int) {
	s.OptionExpiry = chain.Expiry
	s.OptionChain = chain.Top(n)
	s.PutCallRatio = chain.PutCallRatio()
}
