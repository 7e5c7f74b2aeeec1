package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels for errors.Is matching. The typed errors below wrap them.
var (
	ErrConfig           = errors.New("invalid configuration")
	ErrInsufficientData = errors.New("insufficient data")
	ErrMalformedBar     = errors.New("malformed bar")
)

// ConfigError reports an invalid window size, multiplier or precision.
type ConfigError struct {
	Field string
	Value any
	Rule  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s=%v: %s", e.Field, e.Value, e.Rule)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// InsufficientDataError reports that fewer bars are available than a window needs.
type InsufficientDataError struct {
	Need int
	Have int
	What string // which computation ran short, e.g. "sma_slow", "atr"
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d bars, have %d", e.What, e.Need, e.Have)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// MalformedBarError reports a bar violating OHLC invariants.
// Index is -1 when the bar was validated outside a series.
type MalformedBarError struct {
	Index  int
	TS     time.Time
	Reason string
}

func (e *MalformedBarError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed bar at %s: %s", e.TS.Format(time.RFC3339), e.Reason)
	}
	return fmt.Sprintf("malformed bar #%d at %s: %s", e.Index, e.TS.Format(time.RFC3339), e.Reason)
}

func (e *MalformedBarError) Unwrap() error { return ErrMalformedBar }

// ErrorKind maps an error to a short machine-readable label used by HTTP responses
// and metrics. Anything that is not a core error is "upstream".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrMalformedBar):
		return "malformed_bar"
	default:
		return "upstream"
	}
}
