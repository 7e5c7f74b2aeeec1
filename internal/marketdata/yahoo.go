package marketdata

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"nifty-signal/internal/model"
)

// chartIter is the subset of *chart.Iter the source consumes.
type chartIter interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

// YahooSource fetches bars from the Yahoo Finance chart API.
type YahooSource struct {
	now   func() time.Time
	chart func(*chart.Params) chartIter
}

// NewYahooSource creates a Yahoo chart source.
func NewYahooSource() *YahooSource {
	return &YahooSource{
		now:   time.Now,
		chart: func(p *chart.Params) chartIter { return chart.Get(p) },
	}
}

// yahooInterval maps a bar duration to a chart interval.
func yahooInterval(d time.Duration) (datetime.Interval, error) {
	switch d {
	case time.Minute:
		return datetime.OneMin, nil
	case 2 * time.Minute:
		return datetime.TwoMins, nil
	case 5 * time.Minute:
		return datetime.FiveMins, nil
	case 15 * time.Minute:
		return datetime.FifteenMins, nil
	case 30 * time.Minute:
		return datetime.ThirtyMins, nil
	case time.Hour:
		return datetime.OneHour, nil
	case 24 * time.Hour:
		return datetime.OneDay, nil
	}
	return "", fmt.Errorf("yahoo: unsupported interval %s", d)
}

// FetchBars returns the bars in [now-lookback, now] for req.Symbol.
func (y *YahooSource) FetchBars(ctx context.Context, req model.BarRequest) (model.BarSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	interval, err := yahooInterval(req.Interval)
	if err != nil {
		return nil, err
	}

	end := y.now()
	start := end.Add(-req.Lookback)
	it := y.chart(&chart.Params{
		Symbol:   req.Symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: interval,
	})

	var bars model.BarSeries
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := it.Bar()
		bars = append(bars, model.Bar{
			TS:     time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   b.Open.InexactFloat64(),
			High:   b.High.InexactFloat64(),
			Low:    b.Low.InexactFloat64(),
			Close:  b.Close.InexactFloat64(),
			Volume: int64(b.Volume),
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", req.Symbol, err)
	}
	return normalize(bars), nil
}
