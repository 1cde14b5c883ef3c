package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStageExecution records one stage execution with duration and
	// error status.
	RecordStageExecution(ctx context.Context, stage string, duration time.Duration, err error)

	// RecordRun records a whole pipeline run.
	RecordRun(ctx context.Context, success bool, duration time.Duration)

	// RecordDegradation records a recoverable failure absorbed by fallback
	// content or omission (failed section, skipped image).
	RecordDegradation(ctx context.Context, stage string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stageExecutions metric.Int64Counter
	stageLatency    metric.Float64Histogram
	stageErrors     metric.Int64Counter
	runs            metric.Int64Counter
	runLatency      metric.Float64Histogram
	degradations    metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("blogsmith")

	stageExecutions, err := meter.Int64Counter("blogsmith.stage.executions",
		metric.WithDescription("Number of stage executions"),
	)
	if err != nil {
		return nil, err
	}

	stageLatency, err := meter.Float64Histogram("blogsmith.stage.latency_ms",
		metric.WithDescription("Stage execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stageErrors, err := meter.Int64Counter("blogsmith.stage.errors",
		metric.WithDescription("Number of stage execution errors"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("blogsmith.run.count",
		metric.WithDescription("Number of pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("blogsmith.run.latency_ms",
		metric.WithDescription("Pipeline run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	degradations, err := meter.Int64Counter("blogsmith.stage.degradations",
		metric.WithDescription("Recoverable failures absorbed by fallback content"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stageExecutions: stageExecutions,
		stageLatency:    stageLatency,
		stageErrors:     stageErrors,
		runs:            runs,
		runLatency:      runLatency,
		degradations:    degradations,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStageExecution records a stage execution.
func (m *otelMetrics) RecordStageExecution(ctx context.Context, stage string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("stage", stage),
	}

	m.stageExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.stageLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.stageErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRun records a pipeline run.
func (m *otelMetrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordDegradation records an absorbed recoverable failure.
func (m *otelMetrics) RecordDegradation(ctx context.Context, stage string) {
	m.degradations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
	))
}
