package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the batch counters for one pipeline run. They are written
// once at the end of the run in the node-exporter textfile format.
type Metrics struct {
	registry *prometheus.Registry

	StandsProcessed   *prometheus.CounterVec
	CurvesWritten     *prometheus.CounterVec
	EventsTotal       *prometheus.CounterVec
	TransitionsTotal  prometheus.Counter
	DiagnosticsTotal  *prometheus.CounterVec
	ArchiveOperations *prometheus.CounterVec
	StepDuration      *prometheus.HistogramVec
	LastRunTimestamp  prometheus.Gauge
}

// NewMetrics creates the pipeline metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		StandsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcbmprep",
			Name:      "stands_processed_total",
			Help:      "Stands seen by the classifier assignor, by forest status.",
		}, []string{"forest"}),
		CurvesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcbmprep",
			Name:      "yield_curves_total",
			Help:      "Deduplicated yield curve rows written, by growth period.",
		}, []string{"growth_period"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcbmprep",
			Name:      "disturbance_events_total",
			Help:      "Disturbance events written, by disturbance kind.",
		}, []string{"kind"}),
		TransitionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gcbmprep",
			Name:      "transition_rules_total",
			Help:      "Transition rules written.",
		}),
		DiagnosticsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcbmprep",
			Name:      "diagnostics_total",
			Help:      "Per-item diagnostics recorded, by type.",
		}, []string{"type"}),
		ArchiveOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcbmprep",
			Name:      "archive_disturbances_total",
			Help:      "Archive ensure outcomes.",
		}, []string{"outcome"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gcbmprep",
			Name:      "step_duration_seconds",
			Help:      "Pipeline step duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"step", "status"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gcbmprep",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	reg.MustRegister(
		m.StandsProcessed,
		m.CurvesWritten,
		m.EventsTotal,
		m.TransitionsTotal,
		m.DiagnosticsTotal,
		m.ArchiveOperations,
		m.StepDuration,
		m.LastRunTimestamp,
	)
	return m
}

// Registry exposes the registry for tests and custom gatherers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStep records a step duration.
func (m *Metrics) ObserveStep(step string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StepDuration.WithLabelValues(step, status).Observe(d.Seconds())
}

// WriteTextfile stamps the run time and writes every metric to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	m.LastRunTimestamp.SetToCurrentTime()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
