package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"nifty-signal/config"
	"nifty-signal/internal/metrics"
	"nifty-signal/internal/model"
)

// Stores are the optional persistence collaborators for NewSource.
// Nil fields disable the matching decorator.
type Stores struct {
	Cache    model.Cache
	CacheTTL time.Duration
	Archive  model.BarWriter
	Reader   model.BarReader
}

// Shutdown releases whatever session the primary source holds.
type Shutdown func(ctx context.Context) error

func noShutdown(context.Context) error { return nil }

// NewSource builds the configured bar source:
// primary source -> metrics -> archive -> cache.
// The returned Shutdown logs out of the broker session, if any.
func NewSource(cfg *config.Config, st Stores, m *metrics.Metrics) (model.BarSource, Shutdown, error) {
	var (
		src      model.BarSource
		name     string
		shutdown Shutdown = noShutdown
	)
	switch cfg.BarSource {
	case config.SourceYahoo:
		src, name = NewYahooSource(), NameYahoo
	case config.SourceSmartAPI:
		sa := NewSmartAPISource(SmartAPIConfig{
			APIKey:     cfg.AngelAPIKey,
			ClientCode: cfg.AngelClientCode,
			Password:   cfg.AngelPassword,
			TOTPSecret: cfg.AngelTOTPSecret,
			Exchange:   cfg.AngelExchange,
		})
		src, name, shutdown = sa, NameSmartAPI, sa.Close
	case config.SourceSQLite:
		if st.Reader == nil {
			return nil, nil, fmt.Errorf("marketdata: BAR_SOURCE=sqlite needs an archive reader")
		}
		// archived bars are neither re-archived nor cached
		return NewObserved(NameArchive, NewArchiveSource(st.Reader), m), noShutdown, nil
	default:
		return nil, nil, &model.ConfigError{Field: "BAR_SOURCE", Value: cfg.BarSource, Rule: "must be yahoo, smartapi or sqlite"}
	}

	src = NewObserved(name, src, m)
	if st.Archive != nil {
		src = NewArchivingSource(src, st.Archive)
	}
	if st.Cache != nil {
		src = NewCachedSource(src, st.Cache, st.CacheTTL)
	}
	log.Printf("[marketdata] source=%s archive=%t cache=%t", name, st.Archive != nil, st.Cache != nil)
	return src, shutdown, nil
}
