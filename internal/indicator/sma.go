package indicator

import "nifty-signal/internal/model"

// SimpleMovingAverage returns the SMA of closes over window.
// Index i holds mean(closes[i-window+1..i]) once i >= window-1; earlier
// entries are absent.
func SimpleMovingAverage(closes []float64, window int) ([]Value, error) {
	if err := checkWindow("sma_window", window); err != nil {
		return nil, err
	}
	in := make([]Value, len(closes))
	for i, c := range closes {
		in[i] = Some(c)
	}
	return rollingMean(in, window), nil
}

func checkWindow(field string, window int) error {
	if window <= 0 {
		return &model.ConfigError{Field: field, Value: window, Rule: "must be > 0"}
	}
	return nil
}
