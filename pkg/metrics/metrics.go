// Package metrics exposes Prometheus collectors for the change pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transaction outcomes.
const (
	OutcomeVerified = "verified"
	OutcomeNoOp     = "noop"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	transactions   *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	verdicts       *prometheus.CounterVec
	historyAppends *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portctl_transactions_total",
			Help: "Change transactions by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portctl_transaction_duration_seconds",
			Help:    "Wall time of change transactions.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portctl_precheck_verdicts_total",
			Help: "Pre-check verdicts by safety.",
		}, []string{"safe"}),
		historyAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portctl_history_appends_total",
			Help: "History entries appended by kind (change, noop, rollback).",
		}, []string{"kind"}),
	}
	m.Registry.MustRegister(m.transactions, m.duration, m.verdicts, m.historyAppends)
	return m
}

// Transaction records the outcome and duration of one transaction.
func (m *Metrics) Transaction(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// Verdict counts one pre-check verdict.
func (m *Metrics) Verdict(safe bool) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(strconv.FormatBool(safe)).Inc()
}

// HistoryAppend counts one appended history entry.
func (m *Metrics) HistoryAppend(kind string) {
	if m == nil {
		return
	}
	m.historyAppends.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
