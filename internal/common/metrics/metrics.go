// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_calls_total",
			Help: "Total number of ledger operations invoked",
		},
		[]string{"operation"},
	)

	LedgerCallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_call_failures_total",
			Help: "Total number of ledger operations that faulted",
		},
		[]string{"operation", "code"},
	)

	LedgerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ledger_call_duration_seconds",
			Help: "Duration of ledger operation processing in seconds",
		},
		[]string{"operation"},
	)

	LedgerEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_emitted_total",
			Help: "Total number of ledger events published",
		},
		[]string{"type"},
	)
)
