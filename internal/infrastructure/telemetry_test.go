package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcbmprep/internal/config"
)

func TestInitializeTracingDisabled(t *testing.T) {
	tr, err := InitializeTracing(config.TelemetryConfig{}, nil)
	require.NoError(t, err)

	_, span := tr.StartSpan(context.Background(), "noop")
	EndSpan(span, nil)
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestInitializeTracingToFile(t *testing.T) {
	traceFile := filepath.Join(t.TempDir(), "trace", "spans.json")
	tr, err := InitializeTracing(config.TelemetryConfig{
		TracingEnabled: true,
		TraceFile:      traceFile,
	}, DiscardLogger())
	require.NoError(t, err)

	ctx := WithTraceID(context.Background(), "run-1")
	_, span := tr.StartSpan(ctx, "resolve_curves")
	EndSpan(span, errors.New("boom"))
	require.NoError(t, tr.Shutdown(context.Background()))

	content, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "resolve_curves")
	assert.Contains(t, string(content), "run-1")
	assert.Contains(t, string(content), "boom")
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.EventsTotal.WithLabelValues("1st_Thin").Add(3)
	m.DiagnosticsTotal.WithLabelValues("MISSING_SOURCE").Inc()
	m.ObserveStep("classify", 120*time.Millisecond, nil)
	m.ObserveStep("archive", time.Second, errors.New("locked"))


	path := filepath.Join(t.TempDir(), "metrics", "gcbmprep.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(content)
	assert.Contains(t, out, `gcbmprep_disturbance_events_total{kind="1st_Thin"} 3`)
	assert.Contains(t, out, `gcbmprep_diagnostics_total{type="MISSING_SOURCE"} 1`)
	assert.Contains(t, out, `gcbmprep_step_duration_seconds_count{status="error",step="archive"} 1`)
	assert.Contains(t, out, "gcbmprep_last_run_timestamp_seconds")
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStep("x", time.Second, nil)
	assert.NoError(t, m.WriteTextfile("ignored"))
}
