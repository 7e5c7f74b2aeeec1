// Package markethours answers whether the NSE cash session is open, so the
// dashboard can flag bars that will not update until the next session.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Market hours in IST
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30
)

// Status is a snapshot of the session state at a point in time.
type Status struct {
	Open      bool      `json:"open"`
	Text      string    `json:"text"`
	NextOpen  time.Time `json:"next_open"`
	LastClose time.Time `json:"last_close"`
}

// StatusAt returns the session state at t.
func StatusAt(t time.Time) Status {
	return Status{
		Open:      IsMarketOpen(t),
		Text:      StatusString(t),
		NextOpen:  NextOpen(t),
		LastClose: LastClose(t),
	}
}

// IsMarketOpen returns true if t falls within NSE trading hours
// (09:15 to 15:30 IST, Mon-Fri, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	ist := t.In(IST)
	if !IsTradingDay(ist) {
		return false
	}
	hm := ist.Hour()*60 + ist.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// IsWeekday returns true if t is Mon-Fri.
func IsWeekday(t time.Time) bool {
	wd := t.In(IST).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	ist := t.In(IST)
	return IsWeekday(ist) && !IsHoliday(ist)
}

// NextOpen returns the next market open time (09:15 IST on the next trading day).
// If t is before today's open on a trading day, returns today's open.
func NextOpen(t time.Time) time.Time {
	ist := t.In(IST)

	todayOpen := time.Date(ist.Year(), ist.Month(), ist.Day(), OpenHour, OpenMinute, 0, 0, IST)
	if ist.Before(todayOpen) && IsTradingDay(ist) {
		return todayOpen
	}

	d := ist.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ { // max 10 days ahead (holidays + weekends)
		if IsTradingDay(d) {
			return time.Date(d.Year(), d.Month(), d.Day(), OpenHour, OpenMinute, 0, 0, IST)
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(ist.Year(), ist.Month(), ist.Day()+1, OpenHour, OpenMinute, 0, 0, IST)
}

// LastClose returns the most recent session close at or before t.
// While the market is open it returns the previous trading day's close.
func LastClose(t time.Time) time.Time {
	ist := t.In(IST)
	todayClose := TodayClose(ist)
	if IsTradingDay(ist) && !ist.Before(todayClose) {
		return todayClose
	}
	d := ist.AddDate(0, 0, -1)
	for i := 0; i < 10; i++ {
		if IsTradingDay(d) {
			return TodayClose(d)
		}
		d = d.AddDate(0, 0, -1)
	}
	return TodayClose(ist.AddDate(0, 0, -1))
}

// TodayClose returns the close time (15:30 IST) on t's IST date.
func TodayClose(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), CloseHour, CloseMinute, 0, 0, IST)
}

// TimeUntilClose returns the duration until today's close.
// Returns 0 if market is already closed.
func TimeUntilClose(t time.Time) time.Duration {
	d := TodayClose(t).Sub(t.In(IST))
	if d < 0 {
		return 0
	}
	return d
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		return fmt.Sprintf("Market Open, closes in %s", fmtDur(TimeUntilClose(t)))
	}
	next := NextOpen(t)
	ist := next.In(IST)
	return fmt.Sprintf("Market Closed, opens %s %s (%s)",
		ist.Weekday().String()[:3], ist.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
