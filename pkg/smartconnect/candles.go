package smartconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Candle intervals accepted by getCandleData.
const (
	OneMinute     = "ONE_MINUTE"
	ThreeMinute   = "THREE_MINUTE"
	FiveMinute    = "FIVE_MINUTE"
	TenMinute     = "TEN_MINUTE"
	FifteenMinute = "FIFTEEN_MINUTE"
	ThirtyMinute  = "THIRTY_MINUTE"
	OneHour       = "ONE_HOUR"
	OneDay        = "ONE_DAY"
)

const candleTimeLayout = "2006-01-02 15:04"

var ist = time.FixedZone("IST", 5*3600+30*60)

// IntervalFor maps a bar duration to the API interval name.
func IntervalFor(d time.Duration) (string, error) {
	switch d {
	case time.Minute:
		return OneMinute, nil
	case 3 * time.Minute:
		return ThreeMinute, nil
	case 5 * time.Minute:
		return FiveMinute, nil
	case 10 * time.Minute:
		return TenMinute, nil
	case 15 * time.Minute:
		return FifteenMinute, nil
	case 30 * time.Minute:
		return ThirtyMinute, nil
	case time.Hour:
		return OneHour, nil
	case 24 * time.Hour:
		return OneDay, nil
	}
	return "", fmt.Errorf("smartapi: unsupported candle interval %s", d)
}

// CandleParams selects a historical candle range.
type CandleParams struct {
	Exchange    string // e.g. "NSE"
	SymbolToken string // e.g. "99926000" for NIFTY 50
	Interval    string // one of the interval constants
	From, To    time.Time
}

// Candle is one historical OHLCV row.
type Candle struct {
	TS     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// GetCandleData fetches historical candles, oldest first.
// Rows arrive as [timestamp, open, high, low, close, volume].
func (sc *SmartConnect) GetCandleData(ctx context.Context, p CandleParams) ([]Candle, error) {
	params := map[string]any{
		"exchange":    p.Exchange,
		"symboltoken": p.SymbolToken,
		"interval":    p.Interval,
		"fromdate":    p.From.In(ist).Format(candleTimeLayout),
		"todate":      p.To.In(ist).Format(candleTimeLayout),
	}
	res, err := sc.post(ctx, "api.candle.data", params)
	if err != nil {
		return nil, err
	}

	rows, ok := res["data"].([]any)
	if !ok {
		// empty ranges come back as "data": null
		return nil, nil
	}

	out := make([]Candle, 0, len(rows))
	for i, r := range rows {
		c, err := parseCandleRow(r)
		if err != nil {
			return nil, fmt.Errorf("smartapi candle row %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCandleRow(r any) (Candle, error) {
	row, ok := r.([]any)
	if !ok || len(row) < 5 {
		return Candle{}, fmt.Errorf("expected [ts,o,h,l,c,v], got %v", r)
	}
	tsStr, ok := row[0].(string)
	if !ok {
		return Candle{}, fmt.Errorf("timestamp is %T", row[0])
	}
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return Candle{}, err
	}

	var vals [5]float64
	for k := 1; k < len(row) && k <= 5; k++ {
		v, err := toFloat(row[k])
		if err != nil {
			return Candle{}, fmt.Errorf("column %d: %w", k, err)
		}
		vals[k-1] = v
	}
	return Candle{
		TS:     ts.UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: int64(vals[4]),
	}, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(t, 64)
	}
	return 0, fmt.Errorf("unexpected %T", v)
}
