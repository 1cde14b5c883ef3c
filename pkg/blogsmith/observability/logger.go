// Package observability provides structured logging, metrics, and tracing
// for the pipeline: slog for logs, OpenTelemetry for metrics and spans.
// Everything is opt-in; no-op implementations are used when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds pipeline context to a logger.
func EnrichLogger(logger *slog.Logger, runID, stage string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("stage", stage),
	)
}

// LogRunStart logs the start of a pipeline run.
func LogRunStart(logger *slog.Logger, runID, topic string) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run starting",
		slog.String("run_id", runID),
		slog.String("topic", topic),
	)
}

// LogRunComplete logs successful run completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, stageCount int) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("stages_executed", stageCount),
	)
}

// LogRunError logs run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastStage string) {
	if logger == nil {
		return
	}
	logger.Error("pipeline run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_stage", lastStage),
	)
}

// LogStageStart logs stage execution start.
func LogStageStart(logger *slog.Logger, stage string) {
	if logger == nil {
		return
	}
	logger.Debug("stage starting",
		slog.String("stage", stage),
	)
}

// LogStageComplete logs successful stage completion.
func LogStageComplete(logger *slog.Logger, stage string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stage completed",
		slog.String("stage", stage),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStageError logs stage execution failure.
func LogStageError(logger *slog.Logger, stage string, err error) {
	if logger == nil {
		return
	}
	logger.Error("stage failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

// LogStageDegraded logs a recoverable failure that was absorbed with
// fallback content or an omission.
func LogStageDegraded(logger *slog.Logger, stage, detail string) {
	if logger == nil {
		return
	}
	logger.Warn("stage degraded",
		slog.String("stage", stage),
		slog.String("detail", detail),
	)
}

// TimedOperation measures the duration of an operation in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
