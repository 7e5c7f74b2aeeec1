package signal

import (
	"iter"

	"nifty-signal/internal/indicator"
	"nifty-signal/internal/model"
)

// Side is where a close sits relative to the slow SMA at one bar.
type Side int

const (
	SideUnknown Side = iota // slow SMA not yet defined
	SideBelow
	SideAt
	SideAbove
)

func (s Side) String() string {
	switch s {
	case SideBelow:
		return "BELOW_SLOW"
	case SideAt:
		return "AT_SLOW"
	case SideAbove:
		return "ABOVE_SLOW"
	default:
		return "UNKNOWN"
	}
}

// Classify places close relative to slow.
func Classify(close float64, slow indicator.Value) Side {
	if !slow.OK {
		return SideUnknown
	}
	switch {
	case close > slow.V:
		return SideAbove
	case close < slow.V:
		return SideBelow
	default:
		return SideAt
	}
}

// transition returns the emission for moving from prev to cur.
// BELOW/AT → ABOVE is BUY, ABOVE/AT → BELOW is SELL. Arriving at AT never emits.
func transition(prev, cur Side) Signal {
	if prev == SideUnknown || prev == cur {
		return None
	}
	switch cur {
	case SideAbove:
		return Buy
	case SideBelow:
		return Sell
	default:
		return None
	}
}

// EvaluateCrossovers returns one (index, Signal) pair per bar, emitting BUY or
// SELL only at the bar where the close crosses the slow SMA of the given
// window. Bars before the first crossing is detectable yield NONE.
//
// The sequence is lazy and restartable: every range over it recomputes the
// SMA from bars. Input is validated up front.
func EvaluateCrossovers(bars model.BarSeries, window int) (iter.Seq2[int, Signal], error) {
	if window <= 0 {
		return nil, &model.ConfigError{Field: "crossover_window", Value: window, Rule: "must be > 0"}
	}
	if err := bars.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < window {
		return nil, &model.InsufficientDataError{Need: window, Have: len(bars), What: "crossover sma"}
	}

	return func(yield func(int, Signal) bool) {
		slow, _ := indicator.SimpleMovingAverage(bars.Closes(), window)
		prev := SideUnknown
		for i := range bars {
			cur := Classify(bars[i].Close, slow[i])
			if !yield(i, transition(prev, cur)) {
				return
			}
			prev = cur
		}
	}, nil
}

// Crossovers collects the BUY/SELL emissions of EvaluateCrossovers as tagged readings.
func Crossovers(bars model.BarSeries, window int) ([]Reading, error) {
	seq, err := EvaluateCrossovers(bars, window)
	if err != nil {
		return nil, err
	}
	var out []Reading
	for i, sig := range seq {
		if sig == None {
			continue
		}
		out = append(out, Reading{Mode: ModeCrossover, Signal: sig, Index: i, TS: bars[i].TS})
	}
	return out, nil
}
