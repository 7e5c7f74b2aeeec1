// Package optionchain fetches NSE index option chain open interest.
package optionchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"nifty-signal/internal/model"
)

// NSE rejects requests without a browser User-Agent and session cookies.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// cookieTTL bounds how long a primed session is reused before priming again.
const cookieTTL = 5 * time.Minute

// NSESource fetches the option chain from nseindia.com.
type NSESource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time

	mu       sync.Mutex
	primedAt time.Time
}

// NewNSESource creates a source rooted at baseURL, e.g. "https://www.nseindia.com".
func NewNSESource(baseURL string) *NSESource {
	jar, _ := cookiejar.New(nil)
	return &NSESource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Jar: jar, Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		now:     time.Now,
	}
}

// nseChain mirrors the fields used from option-chain-indices.
type nseChain struct {
	Records struct {
		ExpiryDates []string `json:"expiryDates"`
		Data        []struct {
			StrikePrice float64 `json:"strikePrice"`
			ExpiryDate  string  `json:"expiryDate"`
			CE          *nseLeg `json:"CE"`
			PE          *nseLeg `json:"PE"`
		} `json:"data"`
	} `json:"records"`
}

type nseLeg struct {
	OpenInterest *float64 `json:"openInterest"`
}

func (s *NSESource) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return s.client.Do(req)
}

// prime loads the home page so the jar holds the session cookies the API checks.
func (s *NSESource) prime(ctx context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force && !s.primedAt.IsZero() && s.now().Sub(s.primedAt) < cookieTTL {
		return nil
	}
	resp, err := s.get(ctx, s.baseURL+"/")
	if err != nil {
		return fmt.Errorf("nse prime: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	s.primedAt = s.now()
	return nil
}

// FetchOptionChain returns the nearest-expiry chain for symbol, sorted by
// strike. Rows missing either leg's open interest are dropped.
func (s *NSESource) FetchOptionChain(ctx context.Context, symbol string) (model.OptionChain, error) {
	var (
		chain nseChain
		err   error
	)
	for attempt := 0; attempt < 2; attempt++ {
		if err = s.prime(ctx, attempt > 0); err != nil {
			return model.OptionChain{}, err
		}
		var status int
		status, err = s.fetch(ctx, symbol, &chain)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			log.Printf("[nse] %d from option chain, priming session again", status)
			continue
		}
		break
	}
	if err != nil {
		return model.OptionChain{}, err
	}
	return toModel(symbol, chain, s.now()), nil
}

func (s *NSESource) fetch(ctx context.Context, symbol string, dst *nseChain) (int, error) {
	u := s.baseURL + "/api/option-chain-indices?symbol=" + url.QueryEscape(symbol)
	resp, err := s.get(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("nse option chain: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("nse option chain: http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("nse option chain decode: %w", err)
	}
	return resp.StatusCode, nil
}

func toModel(symbol string, c nseChain, at time.Time) model.OptionChain {
	out := model.OptionChain{Symbol: symbol, FetchedAt: at.UTC()}
	if len(c.Records.ExpiryDates) > 0 {
		out.Expiry = c.Records.ExpiryDates[0]
	}
	for _, row := range c.Records.Data {
		if out.Expiry != "" && row.ExpiryDate != "" && row.ExpiryDate != out.Expiry {
			continue
		}
		if row.CE == nil || row.PE == nil || row.CE.OpenInterest == nil || row.PE.OpenInterest == nil {
			continue
		}
		out.Strikes = append(out.Strikes, model.OptionStrike{
			Strike: row.StrikePrice,
			CallOI: int64(*row.CE.OpenInterest),
			PutOI:  int64(*row.PE.OpenInterest),
		})
	}
	sort.SliceStable(out.Strikes, func(i, j int) bool { return out.Strikes[i].Strike < out.Strikes[j].Strike })
	return out
}
