package signal

import (
	"errors"

	"nifty-signal/internal/indicator"
	"nifty-signal/internal/model"
)

// Result is everything one evaluation produces for a series.
type Result struct {
	Latest     Reading           `json:"latest"`
	Levels     RiskLevels        `json:"levels"`
	LastClose  float64           `json:"last_close"`
	LastATR    float64           `json:"last_atr"`
	Crossovers []Reading         `json:"crossovers"` // BUY/SELL emissions only
	Derived    indicator.Derived `json:"derived"`
}

// LastCrossover returns the most recent edge-triggered emission, if any.
func (r Result) LastCrossover() (Reading, bool) {
	if len(r.Crossovers) == 0 {
		return Reading{}, false
	}
	return r.Crossovers[len(r.Crossovers)-1], true
}

// Evaluator runs both strategies and the risk computation with one Config.
// It holds no state between calls and is safe for concurrent use.
type Evaluator struct {
	cfg Config
}

// NewEvaluator validates cfg and returns an Evaluator.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{cfg: cfg}, nil
}

// Config returns the evaluator's configuration.
func (e *Evaluator) Config() Config { return e.cfg }

// Evaluate validates bars, derives indicators and returns the latest signal,
// its risk levels and the crossover emissions. Any failure returns an error
// and no partial Result.
func (e *Evaluator) Evaluate(bars model.BarSeries) (Result, error) {
	if err := bars.Validate(); err != nil {
		return Result{}, err
	}
	need := max(e.cfg.FastWindow, e.cfg.SlowWindow)
	if len(bars) < need {
		return Result{}, &model.InsufficientDataError{Need: need, Have: len(bars), What: "sma_fast/sma_slow"}
	}
	if len(bars) < e.cfg.ATRWindow {
		return Result{}, &model.InsufficientDataError{Need: e.cfg.ATRWindow, Have: len(bars), What: "atr"}
	}

	d, err := indicator.Derive(bars, e.cfg.Windows())
	if err != nil {
		return Result{}, err
	}
	sig, err := classifyLatest(indicator.Last(d.SMAFast), indicator.Last(d.SMASlow))
	if err != nil {
		return Result{}, err
	}

	last, _ := bars.Last()
	atr := indicator.Last(d.ATR)
	levels, err := ComputeRiskLevels(last.Close, atr, e.cfg.Multiplier, sig, e.cfg.Precision)
	if err != nil {
		var mb *model.MalformedBarError
		if errors.As(err, &mb) {
			mb.Index, mb.TS = len(bars)-1, last.TS
		}
		return Result{}, err
	}

	var crossovers []Reading
	if len(bars) >= e.cfg.CrossoverWindow {
		crossovers, err = Crossovers(bars, e.cfg.CrossoverWindow)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{
		Latest: Reading{
			Mode:   ModeLatest,
			Signal: sig,
			Index:  len(bars) - 1,
			TS:     last.TS,
		},
		Levels:     levels,
		LastClose:  last.Close,
		LastATR:    atr.V,
		Crossovers: crossovers,
		Derived:    d,
	}, nil
}
