package workflow

import (
	"log/slog"

	"github.com/calegray/blogsmith/pkg/blogsmith/event"
	"github.com/calegray/blogsmith/pkg/blogsmith/observability"
	"github.com/calegray/blogsmith/pkg/blogsmith/provider"
)

// Options configures a pipeline run's behavior.
type Options struct {
	// EnableResearch turns on the research stage. It is only effective
	// when a research provider is also configured.
	EnableResearch bool

	// Model overrides the text provider's default model when non-empty.
	Model string

	// Temperature for text generation; zero means provider default.
	Temperature float64

	// MaxEvidence caps how many research snippets feed the prompts.
	// Zero means DefaultMaxEvidence.
	MaxEvidence int

	// SectionConcurrency caps concurrent section-writing tasks.
	// Zero means unbounded; section counts are small and bounded by the
	// plan's own limits.
	SectionConcurrency int

	// ImageConcurrency caps concurrent image-generation tasks.
	// Zero means unbounded.
	ImageConcurrency int
}

// DefaultMaxEvidence is the evidence cap when Options.MaxEvidence is zero.
const DefaultMaxEvidence = 6

// maxEvidence resolves the configured cap.
func (o Options) maxEvidence() int {
	if o.MaxEvidence > 0 {
		return o.MaxEvidence
	}
	return DefaultMaxEvidence
}

// Providers holds the capability backends for a run. Text is mandatory;
// Image and Research are optional, nil meaning the capability is disabled.
type Providers struct {
	Text     provider.TextGenerator
	Image    provider.ImageGenerator
	Research provider.ResearchProvider
}

// Option customizes a Workflow beyond the run Options.
type Option func(*Workflow)

// WithLogger sets the logger for run and stage lifecycle logging.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithEmitter sets the progress event emitter.
func WithEmitter(e event.Emitter) Option {
	return func(w *Workflow) {
		if e != nil {
			w.emitter = e
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(w *Workflow) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithTracing enables span creation through the given span manager.
func WithTracing(spans observability.SpanManager) Option {
	return func(w *Workflow) {
		w.spans = spans
	}
}

// WithRetryConfig overrides the retry budget applied to provider calls.
// The default is provider.DefaultRetry (two attempts with backoff).
func WithRetryConfig(cfg provider.RetryConfig) Option {
	return func(w *Workflow) {
		w.retry = cfg
	}
}
