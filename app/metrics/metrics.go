// Package metrics records Prometheus metrics for ingestion runs
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// IngestionMetrics holds the ingestion collectors. A nil *IngestionMetrics records nothing.
type IngestionMetrics struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	rowsTotal        *prometheus.CounterVec
	historyFallbacks prometheus.Counter
	postSyncFailures *prometheus.CounterVec
	lastSuccess      prometheus.Gauge
}

// NewIngestionMetrics registers the ingestion collectors on a private registry
func NewIngestionMetrics() *IngestionMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &IngestionMetrics{
		registry: reg,
		// Ingestion runs partitioned by terminal status and the stage reached
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workforce",
				Name:      "ingestion_runs_total",
				Help:      "Total number of ingestion runs by outcome",
			},
			[]string{"status", "stage"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "workforce",
				Name:      "ingestion_duration_seconds",
				Help:      "Wall time of ingestion runs in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		rowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workforce",
				Name:      "ingested_rows_total",
				Help:      "Rows written per call log table",
			},
			[]string{"table"},
		),
		historyFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "workforce",
				Name:      "history_fallback_total",
				Help:      "Number of times the cutoff history query failed and the fallback query was used",
			},
		),
		postSyncFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workforce",
				Name:      "post_sync_failures_total",
				Help:      "Best-effort post-load steps that failed",
			},
			[]string{"step"},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "workforce",
				Name:      "ingestion_last_success_timestamp_seconds",
				Help:      "Unix time of the last completed ingestion",
			},
		),
	}
}

// Registry exposes the underlying registry for scraping or inspection
func (m *IngestionMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRun records a finished run
func (m *IngestionMetrics) ObserveRun(status, stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status, stage).Inc()
	m.runDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	if status == "completed" {
		m.lastSuccess.SetToCurrentTime()
	}
}

// AddRows counts rows written to a table
func (m *IngestionMetrics) AddRows(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsTotal.WithLabelValues(table).Add(float64(n))
}

// HistoryFallback counts a degraded history lookup
func (m *IngestionMetrics) HistoryFallback() {
	if m == nil {
		return
	}
	m.historyFallbacks.Inc()
}

// PostSyncFailed counts a failed best-effort step
func (m *IngestionMetrics) PostSyncFailed(step string) {
	if m == nil {
		return
	}
	m.postSyncFailures.WithLabelValues(step).Inc()
}

// Push sends the current values to a Pushgateway; CLI runs are too short-lived to be scraped
func (m *IngestionMetrics) Push(url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
