package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"gcbmprep/internal/config"
)

// TracerName is the instrumentation scope for every pipeline span.
const TracerName = "gcbmprep"

// Tracing holds the tracer used for pipeline steps and the provider that
// must be shut down to flush spans.
type Tracing struct {
	Tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	file     *os.File
}

// InitializeTracing sets up span export to the configured trace file, or a
// no-op tracer when tracing is disabled.
func InitializeTracing(cfg config.TelemetryConfig, logger *slog.Logger) (*Tracing, error) {
	if !cfg.TracingEnabled {
		return &Tracing{Tracer: noop.NewTracerProvider().Tracer(TracerName)}, nil
	}

	var (
		out  io.Writer = os.Stderr
		file *os.File
	)
	if cfg.TraceFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
		f, err := os.Create(cfg.TraceFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		file = f
		out = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.AppName
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(config.AppVersion),
	)

	// Synchronous export keeps span order stable in the trace file.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)

	if logger != nil {
		logger.Info("Tracing initialized",
			slog.String("service", serviceName),
			slog.String("trace_file", cfg.TraceFile))
	}

	return &Tracing{
		Tracer:   tp.Tracer(TracerName, trace.WithInstrumentationVersion(config.AppVersion)),
		provider: tp,
		file:     file,
	}, nil
}

// Shutdown flushes pending spans and closes the trace file.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	err := t.provider.Shutdown(ctx)
	if t.file != nil {
		if cerr := t.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// StartSpan starts a span tagged with the run's trace id.
func (t *Tracing) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	var tracer trace.Tracer = noop.NewTracerProvider().Tracer(TracerName)
	if t != nil && t.Tracer != nil {
		tracer = t.Tracer
	}
	if id := GetTraceID(ctx); id != "" {
		attrs = append(attrs, attribute.String("gcbm.trace_id", id))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
