package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"nifty-signal/internal/markethours"
	"nifty-signal/internal/model"
	"nifty-signal/internal/notification"
)

// in-session Monday morning
var refreshAt = time.Date(2026, 3, 2, 10, 0, 0, 0, markethours.IST)

var t0 = time.Date(2026, 3, 2, 3, 45, 0, 0, time.UTC)

func seriesFromCloses(closes ...float64) model.BarSeries {
	out := make(model.BarSeries, len(closes))
	for i, c := range closes {
		out[i] = model.Bar{TS: t0.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return out
}

// breakout is 25 flat bars at 100 followed by a jump to 110: the last bar
// crosses above SMA(20) and SMA(5) sits above SMA(20).
func breakout() model.BarSeries {
	closes := make([]float64, 0, 26)
	for i := 0; i < 25; i++ {
		closes = append(closes, 100)
	}
	return seriesFromCloses(append(closes, 110)...)
}

type stubBars struct {
	bars model.BarSeries
	err  error
}

func (s *stubBars) FetchBars(ctx context.Context, req model.BarRequest) (model.BarSeries, error) {
	return s.bars, s.err
}

type stubChains struct {
	chain model.OptionChain
	err   error
}

func (s *stubChains) FetchOptionChain(ctx context.Context, symbol string) (model.OptionChain, error) {
	return s.chain, s.err
}

func nseChain(n int) model.OptionChain {
	c := model.OptionChain{Symbol: "NIFTY", Expiry: "06-Mar-2026"}
	for i := n - 1; i >= 0; i-- {
		c.Strikes = append(c.Strikes, model.OptionStrike{Strike: 21500 + float64(i)*50, CallOI: 100, PutOI: 150})
	}
	return c
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notification.Alert
}

func (r *recordingNotifier) Send(ctx context.Context, a notification.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

type recordingHub struct {
	msgs [][]byte
}

func (r *recordingHub) Broadcast(data []byte) { r.msgs = append(r.msgs, data) }

var errYahoo = errors.New("yahoo chart ^NSEI: 502 Bad Gateway")
