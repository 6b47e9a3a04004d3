package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Ledger
	LedgerOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger mutations by operation and outcome",
		},
		[]string{"op", "outcome"}, // outcome: ok|idempotent|conflict|invalid|error
	)
	AdjustmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_adjustments_created_total",
			Help: "Adjustments written for settled splits",
		},
	)
	RecurringExpensesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recurring_expenses_created_total",
			Help: "Expenses materialized from recurring templates",
		},
	)
	RecurringFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recurring_template_failures_total",
			Help: "Recurring templates that failed to materialize",
		},
	)

	// Cache
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		},
		[]string{"cache", "result"}, // hit|miss
	)
	CacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Entries held per cache after the last sweep",
		},
		[]string{"cache"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events handed to the broker",
		},
		[]string{"type", "result"},
	)
)

// Handler serves /metrics.
var Handler = promhttp.Handler

// Init registers every collector with the default registry.
func Init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		LedgerOpsTotal,
		AdjustmentsCreated,
		RecurringExpensesCreated,
		RecurringFailures,
		CacheLookups,
		CacheEntries,
		WorkerQueueDepth,
		EventsPublished,
	)
}
