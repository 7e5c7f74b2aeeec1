// Package metrics exposes Prometheus metrics and the /healthz probe.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the signal service.
// Every helper method is safe to call on a nil *Metrics.
type Metrics struct {
	// Evaluation
	EvaluationsTotal *prometheus.CounterVec // labels: outcome=BUY|SELL|NEUTRAL|<error kind>
	EvaluationDur    prometheus.Histogram
	LatestSignal     prometheus.Gauge // 1=BUY, -1=SELL, 0=NEUTRAL
	BarsEvaluated    prometheus.Gauge

	// Collaborators
	FetchDur      *prometheus.HistogramVec // labels: source
	FetchFailures *prometheus.CounterVec   // labels: source
	CacheRequests *prometheus.CounterVec   // labels: result=hit|miss|error

	// Redis circuit breaker
	CacheBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CacheBreakerTrips prometheus.Counter

	// Presentation
	CrossoverAlerts *prometheus.CounterVec // labels: signal
	WSClients       prometheus.Gauge
	MarketState     prometheus.Gauge // 0=closed, 1=open
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_evaluations_total",
			Help: "Signal evaluations by outcome (signal or error kind)",
		}, []string{"outcome"}),
		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signal_evaluation_duration_seconds",
			Help:    "Indicator + signal + risk computation latency per refresh",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		LatestSignal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_latest",
			Help: "Latest point-in-time signal (1=BUY, -1=SELL, 0=NEUTRAL)",
		}),
		BarsEvaluated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_bars_evaluated",
			Help: "Number of bars in the last evaluated series",
		}),

		FetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signal_fetch_duration_seconds",
			Help:    "Upstream fetch latency by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_fetch_failures_total",
			Help: "Upstream fetch failures by source",
		}, []string{"source"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_cache_requests_total",
			Help: "Redis cache lookups by result",
		}, []string{"result"}),

		CacheBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_cache_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CacheBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_cache_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		CrossoverAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_crossover_alerts_total",
			Help: "Crossover alerts delivered by signal",
		}, []string{"signal"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_ws_clients",
			Help: "Connected dashboard WebSocket clients",
		}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_market_state",
			Help: "NSE session state (0=closed, 1=open)",
		}),
	}

	reg.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationDur,
		m.LatestSignal,
		m.BarsEvaluated,
		m.FetchDur,
		m.FetchFailures,
		m.CacheRequests,
		m.CacheBreakerState,
		m.CacheBreakerTrips,
		m.CrossoverAlerts,
		m.WSClients,
		m.MarketState,
	)

	return m
}

// ObserveFetch records one upstream call.
func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDur.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		m.FetchFailures.WithLabelValues(source).Inc()
	}
}

// ObserveCache records a cache lookup result: "hit", "miss" or "error".
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// ObserveEvaluation records an evaluation outcome and its latency.
// outcome is the signal on success or the error kind on failure.
func (m *Metrics) ObserveEvaluation(outcome string, bars int, d time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
	m.EvaluationDur.Observe(d.Seconds())
	m.BarsEvaluated.Set(float64(bars))
	switch outcome {
	case "BUY":
		m.LatestSignal.Set(1)
	case "SELL":
		m.LatestSignal.Set(-1)
	case "NEUTRAL":
		m.LatestSignal.Set(0)
	}
}

// ObserveAlert counts a delivered crossover alert.
func (m *Metrics) ObserveAlert(signal string) {
	if m == nil {
		return
	}
	m.CrossoverAlerts.WithLabelValues(signal).Inc()
}

// SetBreakerState records a circuit breaker transition.
func (m *Metrics) SetBreakerState(state int, tripped bool) {
	if m == nil {
		return
	}
	m.CacheBreakerState.Set(float64(state))
	if tripped {
		m.CacheBreakerTrips.Inc()
	}
}

// SetWSClients records the connected client count.
func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.WSClients.Set(float64(n))
}

// SetMarketOpen records the NSE session state.
func (m *Metrics) SetMarketOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.MarketState.Set(1)
	} else {
		m.MarketState.Set(0)
	}
}
