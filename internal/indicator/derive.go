package indicator

import "nifty-signal/internal/model"

// Default window sizes.
const (
	DefaultFastWindow = 5
	DefaultSlowWindow = 20
	DefaultATRWindow  = 14
)

// Windows configures the rolling windows used by Derive.
type Windows struct {
	Fast int `json:"fast"`
	Slow int `json:"slow"`
	ATR  int `json:"atr"`
}

// DefaultWindows returns 5/20/14.
func DefaultWindows() Windows {
	return Windows{Fast: DefaultFastWindow, Slow: DefaultSlowWindow, ATR: DefaultATRWindow}
}

// Validate rejects any window <= 0.
func (w Windows) Validate() error {
	if err := checkWindow("fast_window", w.Fast); err != nil {
		return err
	}
	if err := checkWindow("slow_window", w.Slow); err != nil {
		return err
	}
	return checkWindow("atr_window", w.ATR)
}

// Derived holds the indicator series computed from one BarSeries.
// All slices are aligned index-for-index with the input.
type Derived struct {
	SMAFast   []Value `json:"sma_fast"`
	SMASlow   []Value `json:"sma_slow"`
	TrueRange []Value `json:"true_range"`
	ATR       []Value `json:"atr"`
}

// Len returns the common length of the derived series.
func (d Derived) Len() int { return len(d.TrueRange) }

// Derive computes every derived series for bars in one pass per indicator.
func Derive(bars model.BarSeries, w Windows) (Derived, error) {
	if err := w.Validate(); err != nil {
		return Derived{}, err
	}
	closes := bars.Closes()

	fast, err := SimpleMovingAverage(closes, w.Fast)
	if err != nil {
		return Derived{}, err
	}
	slow, err := SimpleMovingAverage(closes, w.Slow)
	if err != nil {
		return Derived{}, err
	}
	tr := TrueRange(bars)
	atr, err := AverageTrueRange(tr, w.ATR)
	if err != nil {
		return Derived{}, err
	}

	return Derived{
		SMAFast:   fast,
		SMASlow:   slow,
		TrueRange: tr,
		ATR:       atr,
	}, nil
}
