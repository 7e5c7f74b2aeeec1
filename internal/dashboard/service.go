package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"nifty-signal/internal/logger"
	"nifty-signal/internal/markethours"
	"nifty-signal/internal/metrics"
	"nifty-signal/internal/model"
	"nifty-signal/internal/notification"
	"nifty-signal/internal/signal"
)

// Options configures the dashboard service.
type Options struct {
	Request         model.BarRequest
	DisplaySymbol   string // shown to viewers; defaults to Request.Symbol
	OptionSymbol    string
	OptionTopN      int
	ChartPadding    float64
	MaxCrossovers   int
	RefreshInterval time.Duration
}

func (o *Options) defaults() {
	if o.DisplaySymbol == "" {
		o.DisplaySymbol = o.Request.Symbol
	}
	if o.OptionTopN <= 0 {
		o.OptionTopN = 10
	}
	if o.ChartPadding <= 0 {
		o.ChartPadding = 30
	}
	if o.MaxCrossovers <= 0 {
		o.MaxCrossovers = 10
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = 60 * time.Second
	}
}

// Broadcaster pushes encoded snapshots to live viewers.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Publisher forwards encoded snapshots to a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Deps are the service collaborators. Only Bars and Evaluator are required.
type Deps struct {
	Bars      model.BarSource
	Chains    model.OptionChainSource
	Evaluator *signal.Evaluator
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Hub       Broadcaster
	Publisher Publisher
	Channel   string // pub/sub channel for Publisher
}

// Service refreshes and holds the latest Snapshot.
type Service struct {
	opts Options
	deps Deps
	now  func() time.Time

	mu          sync.RWMutex
	latest      Snapshot
	lastAlertTS time.Time
}

// NewService creates a dashboard service.
func NewService(opts Options, deps Deps) (*Service, error) {
	if deps.Bars == nil || deps.Evaluator == nil {
		return nil, fmt.Errorf("dashboard: bar source and evaluator are required")
	}
	opts.defaults()
	return &Service{opts: opts, deps: deps, now: time.Now}, nil
}

// Latest returns the most recent snapshot.
func (s *Service) Latest() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Refresh fetches, evaluates and publishes a new snapshot. Collaborator
// failures are reported as warnings on the snapshot, never as errors.
func (s *Service) Refresh(ctx context.Context) Snapshot {
	now := s.now()
	traceID := logger.GenerateTraceID(s.opts.DisplaySymbol, now)
	ctx = logger.WithTraceID(ctx, traceID)

	snap := Snapshot{
		Symbol:      s.opts.DisplaySymbol,
		GeneratedAt: now.UTC(),
		TraceID:     traceID,
		Market:      markethours.StatusAt(now),
	}
	s.deps.Metrics.SetMarketOpen(snap.Market.Open)
	if !snap.Market.Open {
		snap.warn(WarnMarketClosed, "Market is currently closed. Data may not be live.")
	}

	refreshErr := s.refreshSignal(ctx, &snap)
	s.refreshOptionChain(ctx, &snap)

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if s.deps.Health != nil {
		s.deps.Health.RecordRefresh(now, snap.Bars, refreshErr)
	}
	s.publish(ctx, snap)

	attrs := append(logger.LogWithTrace(ctx),
		slog.Int("bars", snap.Bars),
		slog.Int("warnings", len(snap.Warnings)),
	)
	if snap.Signal != nil {
		attrs = append(attrs, slog.String("signal", string(snap.Signal.Signal)))
	}
	slog.Info("dashboard refreshed", attrs...)
	return snap
}

func (s *Service) refreshSignal(ctx context.Context, snap *Snapshot) error {
	bars, err := s.deps.Bars.FetchBars(ctx, s.opts.Request)
	if err != nil {
		snap.warn(model.ErrorKind(err), fmt.Sprintf("No data available: %v", err))
		return err
	}
	snap.setBars(bars, s.opts.ChartPadding)
	if len(bars) == 0 {
		err := &model.InsufficientDataError{Need: 1, Have: 0, What: "bars"}
		snap.warn(model.ErrorKind(err), "No data available from the bar source.")
		return err
	}

	start := time.Now()
	res, err := s.deps.Evaluator.Evaluate(bars)
	elapsed := time.Since(start)
	if err != nil {
		s.deps.Metrics.ObserveEvaluation(model.ErrorKind(err), len(bars), elapsed)
		snap.warn(model.ErrorKind(err), fmt.Sprintf("Could not evaluate signal: %v", err))
		return err
	}
	s.deps.Metrics.ObserveEvaluation(string(res.Latest.Signal), len(bars), elapsed)

	snap.setResult(res, s.deps.Evaluator.Config().Multiplier, s.opts.MaxCrossovers)
	s.maybeAlert(ctx, res, len(bars))
	return nil
}

func (s *Service) refreshOptionChain(ctx context.Context, snap *Snapshot) {
	if s.deps.Chains == nil || s.opts.OptionSymbol == "" {
		return
	}
	chain, err := s.deps.Chains.FetchOptionChain(ctx, s.opts.OptionSymbol)
	if err != nil {
		snap.warn(WarnOptionChain, fmt.Sprintf("Option chain not available currently: %v", err))
		return
	}
	if len(chain.Strikes) == 0 {
		snap.warn(WarnOptionChain, "Option chain not available currently.")
		return
	}
	snap.setOptionChain(chain, s.opts.OptionTopN)
}

// maybeAlert notifies once per bar when the newest bar carries a crossover.
func (s *Service) maybeAlert(ctx context.Context, res signal.Result, n int) {
	if s.deps.Notifier == nil {
		return
	}
	x, ok := res.LastCrossover()
	if !ok || x.Index != n-1 {
		return
	}

	s.mu.Lock()
	if !x.TS.After(s.lastAlertTS) {
		s.mu.Unlock()
		return
	}
	s.lastAlertTS = x.TS
	s.mu.Unlock()

	// Risk levels follow the crossover direction, not the latest classifier.
	levels, err := signal.ComputeRiskLevels(res.LastClose, res.Derived.ATR[x.Index], s.deps.Evaluator.Config().Multiplier, x.Signal, s.deps.Evaluator.Config().Precision)
	if err != nil {
		levels = signal.RiskLevels{Target: res.LastClose, Stoploss: res.LastClose}
	}

	direction := "above"
	if x.Signal == signal.Sell {
		direction = "below"
	}
	alert := notification.Alert{
		Level:    notification.AlertInfo,
		Title:    fmt.Sprintf("%s %s crossover", s.opts.DisplaySymbol, x.Signal),
		Message:  fmt.Sprintf("Close crossed %s SMA(%d) at %s IST", direction, s.deps.Evaluator.Config().CrossoverWindow, x.TS.In(markethours.IST).Format("15:04")),
		Symbol:   s.opts.DisplaySymbol,
		Signal:   string(x.Signal),
		Price:    res.LastClose,
		Target:   levels.Target,
		Stoploss: levels.Stoploss,
		BarTS:    &x.TS,
	}
	if err := s.deps.Notifier.Send(ctx, alert); err != nil {
		log.Printf("[dashboard] alert delivery: %v", err)
		return
	}
	s.deps.Metrics.ObserveAlert(string(x.Signal))
}

// publish pushes the snapshot to WebSocket viewers and the pub/sub channel.
func (s *Service) publish(ctx context.Context, snap Snapshot) {
	if s.deps.Hub == nil && s.deps.Publisher == nil {
		return
	}
	data, err := json.Marshal(envelope{Type: "snapshot", Data: snap})
	if err != nil {
		log.Printf("[dashboard] encode snapshot: %v", err)
		return
	}
	if s.deps.Hub != nil {
		s.deps.Hub.Broadcast(data)
	}
	if s.deps.Publisher != nil && s.deps.Channel != "" {
		if err := s.deps.Publisher.Publish(ctx, s.deps.Channel, data); err != nil {
			log.Printf("[dashboard] publish %s: %v", s.deps.Channel, err)
		}
	}
}

// Run refreshes immediately and then every RefreshInterval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.Refresh(ctx)
	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
