package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics and implements usecase.MetricsRecorder.
type Metrics struct {
	// Ledger metrics
	TransactionsCreated *prometheus.CounterVec
	Transfers           *prometheus.CounterVec
	Warnings            *prometheus.CounterVec
	BudgetChanges       *prometheus.CounterVec

	// Operation metrics
	OperationFailures *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Outbox metrics
	OutboxEvents *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates the metrics and registers them with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates the metrics and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransactionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetledger_transactions_created_total",
				Help: "Total number of ledger transactions created by type",
			},
			[]string{"type"},
		),
		Transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetledger_transfers_total",
				Help: "Total number of transfers by endpoint mode",
			},
			[]string{"mode"},
		),
		Warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetledger_warnings_total",
				Help: "Total number of advisory warnings returned",
			},
			[]string{"type"},
		),
		BudgetChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetledger_budget_changes_total",
				Help: "Total number of envelope budget allocations by type",
			},
			[]string{"type"},
		),

		OperationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetledger_operation_failures_total",
				Help: "Total failed ledger operations by error kind",
			},
			[]string{"operation", "kind"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budgetledger_operation_duration_seconds",
				Help:    "Duration of ledger database transactions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		OutboxEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetledger_outbox_events_total",
				Help: "Outbox events handled by the publisher",
			},
			[]string{"event_type", "status"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "budgetledger_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
}

// RecordTransaction counts a created transaction.
func (m *Metrics) RecordTransaction(txType string) {
	m.TransactionsCreated.WithLabelValues(txType).Inc()
}

// RecordTransfer counts a transfer by its endpoint mode.
func (m *Metrics) RecordTransfer(mode string) {
	m.Transfers.WithLabelValues(mode).Inc()
}

// RecordWarning counts an advisory warning.
func (m *Metrics) RecordWarning(warningType string) {
	m.Warnings.WithLabelValues(warningType).Inc()
}

// RecordBudgetChange counts a budget allocation.
func (m *Metrics) RecordBudgetChange(allocationType string) {
	m.BudgetChanges.WithLabelValues(allocationType).Inc()
}

// RecordFailure counts a failed operation.
func (m *Metrics) RecordFailure(operation, kind string) {
	m.OperationFailures.WithLabelValues(operation, kind).Inc()
}

// ObserveOperation records how long an operation took.
func (m *Metrics) ObserveOperation(operation string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordOutboxEvent counts an outbox event by publish status.
func (m *Metrics) RecordOutboxEvent(eventType, status string) {
	m.OutboxEvents.WithLabelValues(eventType, status).Inc()
}

// RecordRateLimited counts a rejected request.
func (m *Metrics) RecordRateLimited() {
	m.RateLimitHits.Inc()
}
