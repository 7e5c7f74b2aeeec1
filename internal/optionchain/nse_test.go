package optionchain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-signal/internal/model"
)

const chainJSON = `{"records":{"expiryDates":["06-Mar-2026","13-Mar-2026"],"data":[
 {"strikePrice":22100,"expiryDate":"06-Mar-2026","CE":{"openInterest":1200},"PE":{"openInterest":900}},
 {"strikePrice":22000,"expiryDate":"06-Mar-2026","CE":{"openInterest":1500},"PE":{"openInterest":2100}},
 {"strikePrice":22050,"expiryDate":"06-Mar-2026","PE":{"openInterest":300}},
 {"strikePrice":22000,"expiryDate":"13-Mar-2026","CE":{"openInterest":10},"PE":{"openInterest":20}}
]}}`

// fakeNSE sets a session cookie on "/" and requires it on the API route.
func fakeNSE(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var primes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primes, 1)
		http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "abc", Path: "/"})
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/api/option-chain-indices", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("nsit"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("symbol") != "NIFTY" {
			t.Errorf("symbol = %q", r.URL.Query().Get("symbol"))
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		w.Write([]byte(chainJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &primes
}

func TestNSESource_FetchOptionChain(t *testing.T) {
	srv, primes := fakeNSE(t)
	s := NewNSESource(srv.URL)

	chain, err := s.FetchOptionChain(context.Background(), "NIFTY")
	require.NoError(t, err)

	assert.Equal(t, "06-Mar-2026", chain.Expiry)
	require.Len(t, chain.Strikes, 2, "half-populated row and later expiry must be dropped")
	assert.Equal(t, model.OptionStrike{Strike: 22000, CallOI: 1500, PutOI: 2100}, chain.Strikes[0])
	assert.Equal(t, 22100.0, chain.Strikes[1].Strike)
	assert.EqualValues(t, 1, atomic.LoadInt32(primes))

	_, err = s.FetchOptionChain(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(primes), "primed session must be reused")
}

func TestNSESource_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewNSESource(srv.URL).FetchOptionChain(context.Background(), "NIFTY")
	assert.ErrorContains(t, err, "http 502")
}

type stubChain struct {
	chain model.OptionChain
	calls int
}

func (s *stubChain) FetchOptionChain(ctx context.Context, symbol string) (model.OptionChain, error) {
	s.calls++
	return s.chain, nil
}

type memCache map[string][]byte

func (m memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok := m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m memCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	m[key] = raw
	return err
}

func TestCached_ServesSecondCallFromCache(t *testing.T) {
	src := &stubChain{chain: model.OptionChain{Symbol: "NIFTY", Strikes: []model.OptionStrike{{Strike: 22000, CallOI: 1, PutOI: 2}}}}
	c := NewCached(src, memCache{}, 5*time.Minute, nil)

	for i := 0; i < 3; i++ {
		chain, err := c.FetchOptionChain(context.Background(), "NIFTY")
		require.NoError(t, err)
		assert.Len(t, chain.Strikes, 1)
	}
	assert.Equal(t, 1, src.calls)
}
