package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global metrics, registered with promauto on the default registry.

var (
	// 1. HTTP Requests Total (Counter)
	// Counts how many requests arrive, labeled by method, path, and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuroproof_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// 2. HTTP Request Duration (Histogram)
	// Measures server response time. Estimates are the slow path.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neuroproof_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// 3. Decisions (Counter)
	// Reviewer decisions by strategy and outcome (merge / reject).
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuroproof_decisions_total",
			Help: "Total number of proofreading decisions applied",
		},
		[]string{"mode", "outcome"},
	)

	// 4. Undos (Counter)
	UndosTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuroproof_undos_total",
			Help: "Total number of undone decisions and edge edits",
		},
		[]string{"mode"},
	)

	// 5. Remaining Work (Gauge)
	// Last reported number of decisions left, per strategy.
	RemainingWork = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "neuroproof_remaining_work",
			Help: "Estimated number of decisions left in the active strategy",
		},
		[]string{"mode"},
	)

	// 6. Estimate Duration (Histogram)
	// Wall time of Monte-Carlo remaining-work simulations.
	EstimateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neuroproof_estimate_duration_seconds",
			Help:    "Duration of remaining-work simulations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"mode"},
	)

	// 7. Graph Size (Gauge)
	GraphNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "neuroproof_graph_nodes",
			Help: "Number of regions in the working graph",
		},
	)

	// 8. Journal Records (Counter)
	JournalRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuroproof_journal_records_total",
			Help: "Total number of records appended to the decision journal",
		},
		[]string{"op"},
	)
)
