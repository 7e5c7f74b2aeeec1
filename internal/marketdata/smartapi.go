package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/time/rate"

	"nifty-signal/internal/model"
	"nifty-signal/pkg/smartconnect"
)

// SmartAPIConfig holds Angel One login credentials.
type SmartAPIConfig struct {
	APIKey     string
	ClientCode string
	Password   string // trading PIN
	TOTPSecret string // base32 seed from the authenticator enrolment
	Exchange   string // e.g. "NSE"
	RootURL    string // optional override for tests
}

// SmartAPISource fetches historical candles from Angel One.
// req.Symbol is the exchange symbol token, e.g. "99926000" for NIFTY 50.
type SmartAPISource struct {
	cfg     SmartAPIConfig
	client  *smartconnect.SmartConnect
	limiter *rate.Limiter
	now     func() time.Time

	mu       sync.Mutex
	loggedIn bool
}

// NewSmartAPISource creates the source. Login happens on first fetch.
func NewSmartAPISource(cfg SmartAPIConfig) *SmartAPISource {
	if cfg.Exchange == "" {
		cfg.Exchange = "NSE"
	}
	return &SmartAPISource{
		cfg:    cfg,
		client: smartconnect.NewSmartConnect(smartconnect.Config{APIKey: cfg.APIKey, RootURL: cfg.RootURL}),
		// historical API allows 3 requests/second
		limiter: rate.NewLimiter(rate.Every(time.Second/3), 1),
		now:     time.Now,
	}
}

func (s *SmartAPISource) login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedIn {
		return nil
	}
	code, err := totp.GenerateCode(s.cfg.TOTPSecret, s.now())
	if err != nil {
		return fmt.Errorf("smartapi totp: %w", err)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := s.client.GenerateSession(ctx, s.cfg.ClientCode, s.cfg.Password, code); err != nil {
		return fmt.Errorf("smartapi login: %w", err)
	}
	s.loggedIn = true
	return nil
}

func (s *SmartAPISource) renew(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.client.RenewAccessToken(ctx)
}

// Close logs out of an established session. It is a no-op before the
// first login.
func (s *SmartAPISource) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn {
		return nil
	}
	s.loggedIn = false
	if err := s.client.TerminateSession(ctx, s.cfg.ClientCode); err != nil {
		return fmt.Errorf("smartapi logout: %w", err)
	}
	log.Printf("[smartapi] session terminated for %s", s.cfg.ClientCode)
	return nil
}

func (s *SmartAPISource) invalidate() {
	s.mu.Lock()
	s.loggedIn = false
	s.mu.Unlock()
}

// FetchBars returns candles in [now-lookback, now]. An expired session is
// renewed with the refresh token first, then re-established with a fresh
// login, at most once each per call.
func (s *SmartAPISource) FetchBars(ctx context.Context, req model.BarRequest) (model.BarSeries, error) {
	interval, err := smartconnect.IntervalFor(req.Interval)
	if err != nil {
		return nil, err
	}
	end := s.now()
	params := smartconnect.CandleParams{
		Exchange:    s.cfg.Exchange,
		SymbolToken: req.Symbol,
		Interval:    interval,
		From:        end.Add(-req.Lookback),
		To:          end,
	}

	var candles []smartconnect.Candle
	renewed := false
	for attempt := 0; attempt < 3; attempt++ {
		if err := s.login(ctx); err != nil {
			return nil, err
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		candles, err = s.client.GetCandleData(ctx, params)
		if !errors.Is(err, smartconnect.ErrSessionExpired) {
			break
		}
		if !renewed {
			renewed = true
			rerr := s.renew(ctx)
			if rerr == nil {
				log.Printf("[smartapi] session renewed")
				continue
			}
			log.Printf("[smartapi] token renewal failed: %v", rerr)
		}
		log.Printf("[smartapi] session expired, logging in again")
		s.invalidate()
	}
	if err != nil {
		return nil, err
	}

	bars := make(model.BarSeries, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, model.Bar{TS: c.TS, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume})
	}
	return normalize(bars), nil
}
