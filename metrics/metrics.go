// Package metrics exposes Prometheus collectors for a scrape run. Every
// method is safe to call on a nil *Metrics, so callers that do not care
// about metrics pass nil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Row outcome labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Metrics bundles the collectors of one run on a dedicated registry.
type Metrics struct {
	Registry         *prometheus.Registry
	RowsTotal        *prometheus.CounterVec
	RowDuration      prometheus.Histogram
	NavAttemptsTotal prometheus.Counter
	NavRetriesTotal  prometheus.Counter
	VariantFailures  prometheus.Counter
	ExtractionMisses *prometheus.CounterVec
	CheckpointsTotal *prometheus.CounterVec
}

// New constructs and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdpscrape_rows_total",
			Help: "Rows processed, by outcome.",
		},
		[]string{"outcome"},
	)
	rowDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pdpscrape_row_duration_seconds",
			Help:    "Wall time spent on one row, navigation included.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
	)
	navAttempts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdpscrape_navigation_attempts_total",
			Help: "Page load attempts issued.",
		},
	)
	navRetries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdpscrape_navigation_retries_total",
			Help: "Page loads that timed out and were retried or abandoned.",
		},
	)
	variantFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdpscrape_variant_failures_total",
			Help: "Swatch controls omitted because activation or extraction failed.",
		},
	)
	misses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdpscrape_extraction_misses_total",
			Help: "Fields that resolved to empty because no locator matched.",
		},
		[]string{"field"},
	)
	checkpoints := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdpscrape_checkpoint_writes_total",
			Help: "Output table writes, by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(rows, rowDuration, navAttempts, navRetries, variantFailures, misses, checkpoints)

	return &Metrics{
		Registry:         registry,
		RowsTotal:        rows,
		RowDuration:      rowDuration,
		NavAttemptsTotal: navAttempts,
		NavRetriesTotal:  navRetries,
		VariantFailures:  variantFailures,
		ExtractionMisses: misses,
		CheckpointsTotal: checkpoints,
	}
}

// ObserveRow records one finished row.
func (m *Metrics) ObserveRow(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues(outcome).Inc()
	m.RowDuration.Observe(d.Seconds())
}

func (m *Metrics) IncNavAttempt() {
	if m == nil {
		return
	}
	m.NavAttemptsTotal.Inc()
}

func (m *Metrics) IncNavRetry() {
	if m == nil {
		return
	}
	m.NavRetriesTotal.Inc()
}

func (m *Metrics) IncVariantFailure() {
	if m == nil {
		return
	}
	m.VariantFailures.Inc()
}

// IncMiss counts a field that fell through every locator.
func (m *Metrics) IncMiss(field string) {
	if m == nil {
		return
	}
	m.ExtractionMisses.WithLabelValues(field).Inc()
}

// IncCheckpoint counts an output write; ok=false records a failed write.
func (m *Metrics) IncCheckpoint(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.CheckpointsTotal.WithLabelValues(result).Inc()
}
