package model

import (
	"sort"
	"time"
)

// OptionStrike is one row of an options chain snapshot.
type OptionStrike struct {
	Strike float64 `json:"strike"`
	CallOI int64   `json:"call_oi"`
	PutOI  int64   `json:"put_oi"`
}

// OptionChain is a point-in-time open interest snapshot for one underlying.
type OptionChain struct {
	Symbol    string         `json:"symbol"`
	Expiry    string         `json:"expiry,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
	Strikes   []OptionStrike `json:"strikes"`
}

// Top returns the first n strikes in ascending strike order.
func (c OptionChain) Top(n int) []OptionStrike {
	rows := make([]OptionStrike, len(c.Strikes))
	copy(rows, c.Strikes)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Strike < rows[j].Strike })
	if n >= 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

// PutCallRatio returns total put OI / total call OI, or 0 if there is no call OI.
func (c OptionChain) PutCallRatio() float64 {
	var calls, puts int64
	for _, s := range c.Strikes {
		calls += s.CallOI
		puts += s.PutOI
	}
	if calls == 0 {
		return 0
	}
	return float64(puts) / float64(calls)
}
