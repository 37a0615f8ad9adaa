// Package notification provides alert delivery to external channels
// (Telegram, webhooks, the process log) for signal events, and the console
// status block printed after every tick.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"signalmon/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`

	// Record is the signal that raised the alert, if any.
	Record *model.SignalRecord `json:"record,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// SignalAlert builds the alert for an actionable record.
// ok is false for HOLD, which is never alerted.
func SignalAlert(rec model.SignalRecord) (Alert, bool) {
	if !rec.Signal.Actionable() {
		return Alert{}, false
	}
	return Alert{
		Level:   AlertWarning,
		Title:   fmt.Sprintf("%s %s", rec.Signal, rec.Asset),
		Message: fmt.Sprintf("Price: $%s\nReason: %s", formatPrice(rec.Price), rec.Reason),
		Record:  &rec,
	}, true
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi delivers an alert to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
