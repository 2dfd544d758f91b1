package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the marketplace core.
type Metrics struct {
	applicationTransitions *prometheus.CounterVec
	notificationSends      *prometheus.CounterVec
	payoutRows             *prometheus.CounterVec
	payoutDuration         prometheus.Histogram
	invoicesPaid           prometheus.Counter
}

// NewMetrics creates and registers all marketplace metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		applicationTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_transitions_total",
				Help: "Total number of application state transitions",
			},
			[]string{"transition", "outcome"},
		),
		notificationSends: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_sends_total",
				Help: "Total number of outbound notification emails",
			},
			[]string{"result"},
		),
		payoutRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payout_export_rows_total",
				Help: "Total number of invoice rows handled by payout CSV exports",
			},
			[]string{"rail", "outcome"},
		),
		payoutDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "payout_export_duration_ms",
				Help:    "Duration of payout CSV export runs in milliseconds",
				Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
		invoicesPaid: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "invoices_paid_total",
				Help: "Total number of invoices marked paid",
			},
		),
	}
}

// RecordTransition counts one application state transition attempt.
// A nil receiver is a no-op so tests can run without a registry.
func (m *Metrics) RecordTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.applicationTransitions.WithLabelValues(transition, outcome).Inc()
}

// RecordNotification counts one email send result ("sent" or "failed").
func (m *Metrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notificationSends.WithLabelValues(result).Inc()
}

// RecordPayoutRow counts one exported or skipped invoice row.
func (m *Metrics) RecordPayoutRow(rail, outcome string) {
	if m == nil {
		return
	}
	m.payoutRows.WithLabelValues(rail, outcome).Inc()
}

// RecordPayoutDuration records the duration of one export run.
func (m *Metrics) RecordPayoutDuration(milliseconds int64) {
	if m == nil {
		return
	}
	m.payoutDuration.Observe(float64(milliseconds))
}

// RecordInvoicePaid counts one invoice marked paid.
func (m *Metrics) RecordInvoicePaid() {
	if m == nil {
		return
	}
	m.invoicesPaid.Inc()
}
