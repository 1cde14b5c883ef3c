package blogsmith

import (
	"log/slog"

	"github.com/calegray/blogsmith/pkg/blogsmith/event"
	"github.com/calegray/blogsmith/pkg/blogsmith/observability"
)

// runConfig holds configuration for pipeline execution.
type runConfig struct {
	maxIterations  int
	runID          string
	topic          string
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
	emitter        event.Emitter
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 100,
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
		emitter:       event.Discard,
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of stage executions.
// Default: 100
//
// This prevents routing loops from hanging forever. If a run
// exceeds this limit, Run returns a MaxIterationsError.
//
// Example:
//
//	result, err := compiled.Run(ctx, state, blogsmith.WithMaxIterations(20))
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithRunID sets the run identifier used in logs, metrics, and progress
// events. If not set, the context's run ID is used.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithTopic sets the topic recorded on run-level logs and spans.
func WithTopic(topic string) RunOption {
	return func(c *runConfig) {
		c.topic = topic
	}
}

// WithRunLogger sets the logger used for run and stage lifecycle logging.
// If not set, the execution context's logger is used.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder for stage and run measurements.
// Default: no-op.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables span creation for the run and each stage using the
// given span manager.
func WithTracing(spans observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if spans != nil {
			c.spans = spans
			c.tracingEnabled = true
		}
	}
}

// WithEmitter sets the progress event emitter. The executor publishes a
// started event before each stage and a completed or failed event after.
// Default: events are discarded.
func WithEmitter(e event.Emitter) RunOption {
	return func(c *runConfig) {
		if e != nil {
			c.emitter = e
		}
	}
}
