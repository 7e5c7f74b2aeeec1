package indicator

import (
	"math"

	"nifty-signal/internal/model"
)

// TrueRange returns the true range of every bar.
//
// The first bar has no prior close, so its range is high-low. Later bars use
// max(high-low, |high-prevClose|, |low-prevClose|). Every entry is present.
func TrueRange(bars model.BarSeries) []Value {
	out := make([]Value, len(bars))
	for i, b := range bars {
		hl := b.High - b.Low
		if i == 0 {
			out[i] = Some(hl)
			continue
		}
		pc := bars[i-1].Close
		out[i] = Some(math.Max(hl, math.Max(math.Abs(b.High-pc), math.Abs(b.Low-pc))))
	}
	return out
}

// AverageTrueRange is the simple rolling mean of a true range series.
// Absence follows the same rule as SimpleMovingAverage.
func AverageTrueRange(tr []Value, window int) ([]Value, error) {
	if err := checkWindow("atr_window", window); err != nil {
		return nil, err
	}
	return rollingMean(tr, window), nil
}
