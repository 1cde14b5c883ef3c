package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest installs a manual-reader meter provider and returns the
// reader plus a cleanup function restoring the original provider.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("error shutting down meter provider: %v", err)
		}
	}
	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// TestRecordStageExecution verifies counters and latency are recorded with
// the stage attribute, and errors increment the error counter.
func TestRecordStageExecution(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordStageExecution(ctx, "plan", 50*time.Millisecond, nil)
	m.RecordStageExecution(ctx, "plan", 20*time.Millisecond, errors.New("boom"))

	rm := collectMetrics(t, reader)

	execs := findMetric(rm, "blogsmith.stage.executions")
	require.NotNil(t, execs)
	sum, ok := execs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.NotEmpty(t, sum.DataPoints)
	assert.GreaterOrEqual(t, sum.DataPoints[0].Value, int64(2))

	latency := findMetric(rm, "blogsmith.stage.latency_ms")
	require.NotNil(t, latency)

	errCount := findMetric(rm, "blogsmith.stage.errors")
	require.NotNil(t, errCount)
	errSum, ok := errCount.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.NotEmpty(t, errSum.DataPoints)
	assert.GreaterOrEqual(t, errSum.DataPoints[0].Value, int64(1))
}

// TestRecordRun verifies the run counter and latency histogram.
func TestRecordRun(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordRun(context.Background(), true, 2*time.Second)
	m.RecordRun(context.Background(), false, time.Second)

	rm := collectMetrics(t, reader)
	runs := findMetric(rm, "blogsmith.run.count")
	require.NotNil(t, runs)
	latency := findMetric(rm, "blogsmith.run.latency_ms")
	require.NotNil(t, latency)
}

// TestRecordDegradation verifies absorbed failures are counted per stage.
func TestRecordDegradation(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordDegradation(context.Background(), "write_sections")

	rm := collectMetrics(t, reader)
	deg := findMetric(rm, "blogsmith.stage.degradations")
	require.NotNil(t, deg)
}
