package signal

import (
	"time"

	"nifty-signal/internal/model"
)

var t0 = time.Date(2026, 3, 2, 3, 45, 0, 0, time.UTC) // 09:15 IST

// seriesFromCloses builds bars with high = low = open = close.
func seriesFromCloses(closes ...float64) model.BarSeries {
	bars := make(model.BarSeries, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{TS: t0.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(from, to float64) []float64 {
	var out []float64
	for v := from; v <= to; v++ {
		out = append(out, v)
	}
	return out
}
