// Package observability exposes Prometheus metrics for rollup runs.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the rollup pipeline.
type Metrics struct {
	// RunDuration observes wall-clock seconds per entity-type pass.
	RunDuration *prometheus.HistogramVec

	// RowsWritten counts reconciled rows persisted per table and
	// entity type.
	RowsWritten *prometheus.CounterVec

	// RateEstimates counts rate assignments by accuracy label; the
	// "default" and cleanup labels surface fallback pressure.
	RateEstimates *prometheus.CounterVec

	// ZeroRateCohorts counts adequate-size cohorts that produced
	// all-zero rates for the target product. Diagnostic only; the
	// zero rates are still used.
	ZeroRateCohorts *prometheus.CounterVec

	// RunErrors counts non-fatal errors collected during a run.
	RunErrors *prometheus.CounterVec
}

// NewMetrics creates and registers all rollup metrics under a namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of one entity-type rollup pass",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"entity_type"},
		),
		RowsWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_written_total",
				Help:      "Reconciled rows persisted per run",
			},
			[]string{"table", "entity_type"},
		),
		RateEstimates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_estimates_total",
				Help:      "Rate assignments by accuracy label",
			},
			[]string{"accuracy"},
		),
		ZeroRateCohorts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cohort_zero_rate_total",
				Help:      "Adequate-size cohorts that yielded all-zero rates",
			},
			[]string{"accuracy"},
		),
		RunErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "run_errors_total",
				Help:      "Non-fatal errors collected during runs",
			},
			[]string{"entity_type"},
		),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
