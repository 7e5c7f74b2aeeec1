package signal

import (
	"nifty-signal/internal/indicator"
	"nifty-signal/internal/model"
)

// EvaluateLatest classifies the last bar by comparing the fast and slow SMA.
// It needs at least max(fast, slow) bars.
func EvaluateLatest(bars model.BarSeries, w indicator.Windows) (Signal, error) {
	if err := w.Validate(); err != nil {
		return "", err
	}
	if err := bars.Validate(); err != nil {
		return "", err
	}
	need := max(w.Fast, w.Slow)
	if len(bars) < need {
		return "", &model.InsufficientDataError{Need: need, Have: len(bars), What: "sma_fast/sma_slow"}
	}
	closes := bars.Closes()
	fast, err := indicator.SimpleMovingAverage(closes, w.Fast)
	if err != nil {
		return "", err
	}
	slow, err := indicator.SimpleMovingAverage(closes, w.Slow)
	if err != nil {
		return "", err
	}
	return classifyLatest(indicator.Last(fast), indicator.Last(slow))
}

func classifyLatest(fast, slow indicator.Value) (Signal, error) {
	if !fast.OK || !slow.OK {
		return "", &model.InsufficientDataError{What: "sma_fast/sma_slow"}
	}
	switch {
	case fast.V > slow.V:
		return Buy, nil
	case fast.V < slow.V:
		return Sell, nil
	default:
		return Neutral, nil
	}
}
