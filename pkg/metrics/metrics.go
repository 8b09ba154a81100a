// Package metrics exposes Prometheus instrumentation for the text2sql gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradewind_text2sql_runs_total",
			Help: "Total number of text2sql runs by terminal status.",
		},
		[]string{"status"},
	)

	executionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradewind_text2sql_execution_seconds",
			Help:    "Database execution time of accepted queries.",
			Buckets: prometheus.DefBuckets,
		},
	)

	rowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradewind_text2sql_rows_returned",
			Help:    "Rows returned by successful queries.",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, executionSeconds, rowsReturned)
}

// RecordRun increments the terminal-status counter for one run.
func RecordRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}

// RecordExecution observes a successful execution's latency and row count.
func RecordExecution(elapsed time.Duration, rowCount int) {
	executionSeconds.Observe(elapsed.Seconds())
	rowsReturned.Observe(float64(rowCount))
}
