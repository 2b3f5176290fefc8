// Package metrics provides Prometheus metrics for clover.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportsTotal tracks import runs by vendor and outcome
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "imports_total",
			Help:      "Total number of import runs by vendor and status",
		},
		[]string{"vendor", "status"},
	)

	// StageDuration tracks how long each pipeline stage takes
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage", "status"},
	)

	// RowsReplaced tracks raw rows written by period replacement
	RowsReplaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "rawsale",
			Name:      "rows_replaced_total",
			Help:      "Total number of raw sale rows inserted by period replacement",
		},
		[]string{"vendor"},
	)

	// ConfigurationGaps tracks missing rates and thresholds seen during runs
	ConfigurationGaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "configuration_gaps_total",
			Help:      "Total number of configuration gap warnings by kind",
		},
		[]string{"kind"},
	)

	// Tier2Reached tracks groups whose tier 2 start date changed to a reached date
	Tier2Reached = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "reconciler",
			Name:      "tier2_reached_total",
			Help:      "Total number of (rep, year) groups that newly reached their threshold",
		},
		[]string{"product_line"},
	)

	// LockWaitDuration tracks time spent waiting for a product line lock
	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "locks",
			Name:      "wait_duration_seconds",
			Help:      "Time spent waiting for a product line lock",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
	)
)

// ObserveStage records a stage duration.
func ObserveStage(stage, status string, d time.Duration) {
	StageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}
