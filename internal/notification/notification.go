// Package notification carries the best-effort email side channel. State
// transitions build Email values; the Dispatcher sends them after the
// transition has committed, so a failed send can never roll back or mask a
// successful state change.
package notification

import (
	"context"
	"log"

	"annotation-service/internal/metrics"
)

// Email is one outbound message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Dispatcher sends emails best-effort: every failure is logged and counted,
// none is propagated.
type Dispatcher struct {
	sender  Sender
	metrics *metrics.Metrics
}

// NewDispatcher creates a Dispatcher around the given sender. metrics may be
// nil.
func NewDispatcher(sender Sender, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{sender: sender, metrics: m}
}

// Dispatch attempts every email and returns the number of failures. One
// failed send never blocks the remaining sends.
func (d *Dispatcher) Dispatch(ctx context.Context, emails []Email) int {
	failures := 0
	for _, email := range emails {
		if err := d.sender.Send(ctx, email); err != nil {
			failures++
			d.metrics.RecordNotification("failed")
			log.Printf("Notification send failed: to=%s subject=%q error=%v", email.To, email.Subject, err)
			continue
		}
		d.metrics.RecordNotification("sent")
	}
	return failures
}

// DispatchOne attempts a single email and reports whether it was sent.
func (d *Dispatcher) DispatchOne(ctx context.Context, email Email) bool {
	return d.Dispatch(ctx, []Email{email}) == 0
}
