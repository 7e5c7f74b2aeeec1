// Package notification delivers crossover alerts to external channels.
package notification

import (
	"context"
	"errors"
	"log"
	"time"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
// The signal fields are empty for operational alerts.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`

	Symbol   string     `json:"symbol,omitempty"`
	Signal   string     `json:"signal,omitempty"`
	Price    float64    `json:"price,omitempty"`
	Target   float64    `json:"target,omitempty"`
	Stoploss float64    `json:"stoploss,omitempty"`
	BarTS    *time.Time `json:"bar_ts,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts. It is always enabled.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to every configured notifier.
type Multi []Notifier

// Send delivers to all notifiers and joins their errors.
func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
