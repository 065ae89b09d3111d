// Package metrics exposes the Prometheus instruments of the ledger engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCompleted = "completed"
	OutcomeDeclined  = "declined"
	OutcomeReversed  = "reversed"
)

var (
	// TransactionsTotal counts engine decisions by transaction type and outcome.
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Total number of ledger transactions by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	// ProcessingDuration observes the time spent inside the finalize critical
	// section, settlement delay excluded.
	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_processing_duration_seconds",
			Help:    "Duration of balance-mutating critical sections.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
