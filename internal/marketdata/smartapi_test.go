package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-signal/internal/model"
)

const testTOTPSecret = "JBSWY3DPEHPK3PXP"

// fakeAngel validates the TOTP like the real login endpoint and serves candles.
// The first candle request fails with an expired token when expireOnce is
// set. Token renewal is refused when refuseRenew is set.
type fakeAngel struct {
	expireOnce  bool
	refuseRenew bool

	logins, renewals, logouts, expired int32
}

func (f *fakeAngel) start(t *testing.T, now time.Time) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/auth/angelbroking/user/v1/loginByPassword", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		ok, _ := totp.ValidateCustom(body["totp"], testTOTPSecret, now, totp.ValidateOpts{Period: 30, Digits: 6})
		if !ok {
			json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid totp"})
			return
		}
		atomic.AddInt32(&f.logins, 1)
		json.NewEncoder(w).Encode(map[string]any{"status": true, "data": map[string]any{"jwtToken": "jwt", "refreshToken": "rt"}})
	})
	mux.HandleFunc("/rest/auth/angelbroking/jwt/v1/generateTokens", func(w http.ResponseWriter, r *http.Request) {
		if f.refuseRenew {
			json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid refresh token"})
			return
		}
		atomic.AddInt32(&f.renewals, 1)
		json.NewEncoder(w).Encode(map[string]any{"status": true, "data": map[string]any{"jwtToken": "jwt-2", "refreshToken": "rt-2"}})
	})
	mux.HandleFunc("/rest/secure/angelbroking/user/v1/getProfile", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": true, "data": map[string]any{"clientcode": "A1"}})
	})
	mux.HandleFunc("/rest/secure/angelbroking/user/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.logouts, 1)
		json.NewEncoder(w).Encode(map[string]any{"status": true, "data": ""})
	})
	mux.HandleFunc("/rest/secure/angelbroking/historical/v1/getCandleData", func(w http.ResponseWriter, r *http.Request) {
		if f.expireOnce && atomic.CompareAndSwapInt32(&f.expired, 0, 1) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{"error_type": "TokenException", "message": "Invalid Token"})
			return
		}
		w.Write([]byte(`{"status":true,"data":[
			["2026-03-02T09:20:00+05:30", 22005, 22020, 22000, 22018, 0],
			["2026-03-02T09:15:00+05:30", 22000, 22010, 21990, 22005, 0]
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSmartAPI(url string, now time.Time) *SmartAPISource {
	s := NewSmartAPISource(SmartAPIConfig{
		APIKey: "k", ClientCode: "A1", Password: "1111", TOTPSecret: testTOTPSecret, RootURL: url,
	})
	s.now = func() time.Time { return now }
	return s
}

func TestSmartAPISource_LoginAndFetch(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	f := &fakeAngel{}
	s := newTestSmartAPI(f.start(t, now).URL, now)

	req := model.BarRequest{Symbol: "99926000", Interval: 5 * time.Minute, Lookback: 48 * time.Hour}
	bars, err := s.FetchBars(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].TS.Before(bars[1].TS), "bars must be ascending")
	assert.Equal(t, 22005.0, bars[0].Close)

	_, err = s.FetchBars(context.Background(), req)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.logins), "session must be reused")
}

func TestSmartAPISource_RenewsExpiredSession(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	f := &fakeAngel{expireOnce: true}
	s := newTestSmartAPI(f.start(t, now).URL, now)

	bars, err := s.FetchBars(context.Background(), model.BarRequest{Symbol: "99926000", Interval: 5 * time.Minute, Lookback: time.Hour})
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.logins))
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.renewals))
}

func TestSmartAPISource_ReloginWhenRenewalFails(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	f := &fakeAngel{expireOnce: true, refuseRenew: true}
	s := newTestSmartAPI(f.start(t, now).URL, now)

	bars, err := s.FetchBars(context.Background(), model.BarRequest{Symbol: "99926000", Interval: 5 * time.Minute, Lookback: time.Hour})
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&f.logins))
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.renewals))
}

func TestSmartAPISource_CloseTerminatesSession(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	f := &fakeAngel{}
	s := newTestSmartAPI(f.start(t, now).URL, now)
	ctx := context.Background()

	require.NoError(t, s.Close(ctx))
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.logouts), "no session, nothing to log out")

	_, err := s.FetchBars(ctx, model.BarRequest{Symbol: "99926000", Interval: 5 * time.Minute, Lookback: time.Hour})
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.logouts))
}

func TestSmartAPISource_BadTOTPSecret(t *testing.T) {
	s := NewSmartAPISource(SmartAPIConfig{TOTPSecret: "not base32!", RootURL: "http://127.0.0.1:1"})
	_, err := s.FetchBars(context.Background(), model.BarRequest{Symbol: "99926000", Interval: 5 * time.Minute, Lookback: time.Hour})
	assert.ErrorContains(t, err, "totp")
}
