package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveEvaluation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveEvaluation("BUY", 150, time.Millisecond)
	m.ObserveEvaluation("insufficient_data", 3, time.Microsecond)

	if got := testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("BUY")); got != 1 {
		t.Errorf("BUY evaluations = %v", got)
	}
	if got := testutil.ToFloat64(m.LatestSignal); got != 1 {
		t.Errorf("latest signal gauge = %v, error outcomes must not overwrite it", got)
	}
	if got := testutil.ToFloat64(m.BarsEvaluated); got != 3 {
		t.Errorf("bars evaluated = %v", got)
	}
}

func TestMetrics_ObserveFetchCountsFailures(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveFetch("yahoo", 20*time.Millisecond, nil)
	m.ObserveFetch("yahoo", 20*time.Millisecond, errors.New("timeout"))

	if got := testutil.ToFloat64(m.FetchFailures.WithLabelValues("yahoo")); got != 1 {
		t.Errorf("failures = %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveFetch("x", time.Second, nil)
	m.ObserveCache("hit")
	m.ObserveEvaluation("BUY", 1, time.Second)
	m.ObserveAlert("SELL")
	m.SetBreakerState(1, true)
	m.SetWSClients(3)
	m.SetMarketOpen(true)
}

func TestHealth_DegradedUntilFirstRefresh(t *testing.T) {
	h := NewHealthStatus(time.Minute)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503 before first refresh", rec.Code)
	}

	h.RecordRefresh(time.Now(), 150, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "healthy" || body["bars_loaded"] != float64(150) {
		t.Errorf("unexpected body: %v", body)
	}

	h.RecordRefresh(time.Now(), 0, errors.New("yahoo: 502"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503 after failed refresh", rec.Code)
	}
}
