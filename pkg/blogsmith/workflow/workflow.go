// Package workflow implements the blog generation pipeline on top of the
// blogsmith engine: research, planning, parallel section writing, image
// planning and generation, and deterministic assembly.
//
// The pipeline degrades rather than aborts wherever it can. Optional
// capabilities (research, images) that are missing or failing produce
// diagnostics in BlogState.Errors and a reduced post; only unusable input
// or an unreachable text model fails a run.
package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/calegray/blogsmith/pkg/blogsmith"
	"github.com/calegray/blogsmith/pkg/blogsmith/event"
	"github.com/calegray/blogsmith/pkg/blogsmith/observability"
	"github.com/calegray/blogsmith/pkg/blogsmith/provider"
)

// Stage identifiers, in pipeline order.
const (
	stageInit           = "init"
	stageResearch       = "research"
	stagePlan           = "plan"
	stageWriteSections  = "write_sections"
	stageDecideImages   = "decide_images"
	stageGenerateImages = "generate_images"
	stageAssemble       = "assemble"
)

// Workflow is a compiled blog pipeline bound to a set of providers.
// It is safe for concurrent Run calls.
type Workflow struct {
	opts      Options
	providers Providers
	logger    *slog.Logger
	emitter   event.Emitter
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	retry     provider.RetryConfig
	graph     *blogsmith.CompiledGraph[BlogState]
}

// New builds and compiles the pipeline. The text generator is mandatory;
// image and research providers may be nil to disable those capabilities.
func New(opts Options, providers Providers, wfOpts ...Option) (*Workflow, error) {
	if providers.Text == nil {
		return nil, ErrTextGeneratorRequired
	}

	w := &Workflow{
		opts:      opts,
		providers: providers,
		logger:    slog.Default(),
		emitter:   event.Discard,
		metrics:   observability.NoopMetrics{},
		retry:     provider.DefaultRetry,
	}
	for _, opt := range wfOpts {
		opt(w)
	}

	graph, err := w.buildGraph()
	if err != nil {
		return nil, err
	}
	w.graph = graph
	return w, nil
}

// buildGraph wires the stage sequence:
//
//	init -> (research?) -> plan -> write_sections -> decide_images
//	     -> (generate_images?) -> assemble -> END
func (w *Workflow) buildGraph() (*blogsmith.CompiledGraph[BlogState], error) {
	return blogsmith.NewGraph[BlogState]().
		AddStage(stageInit, w.initStage).
		AddStage(stageResearch, w.researchStage).
		AddStage(stagePlan, w.planStage).
		AddStage(stageWriteSections, w.writeSectionsStage).
		AddStage(stageDecideImages, w.decideImagesStage).
		AddStage(stageGenerateImages, w.generateImagesStage).
		AddStage(stageAssemble, w.assembleStage).
		AddConditionalEdge(stageInit, w.afterInit).
		AddEdge(stageResearch, stagePlan).
		AddEdge(stagePlan, stageWriteSections).
		AddEdge(stageWriteSections, stageDecideImages).
		AddConditionalEdge(stageDecideImages, w.afterDecideImages).
		AddEdge(stageGenerateImages, stageAssemble).
		AddEdge(stageAssemble, blogsmith.END).
		SetEntry(stageInit).
		Compile()
}

// Run executes the pipeline for a topic. On error the returned state
// reflects progress up to the failure point.
func (w *Workflow) Run(ctx context.Context, topic string) (BlogState, error) {
	runID := uuid.New().String()

	ectx := blogsmith.NewContext(ctx,
		blogsmith.WithLogger(w.logger),
		blogsmith.WithContextRunID(runID))

	runOpts := []blogsmith.RunOption{
		blogsmith.WithRunID(runID),
		blogsmith.WithTopic(topic),
		blogsmith.WithEmitter(w.emitter),
		blogsmith.WithMetrics(w.metrics),
	}
	if w.spans != nil {
		runOpts = append(runOpts, blogsmith.WithTracing(w.spans))
	}

	return w.graph.Run(ectx, BlogState{RunID: runID, Topic: topic}, runOpts...)
}

// afterInit routes to research only when it is both enabled and configured.
func (w *Workflow) afterInit(ctx blogsmith.Context, s BlogState) string {
	if w.opts.EnableResearch && w.providers.Research != nil {
		return stageResearch
	}
	return stagePlan
}

// afterDecideImages skips generation when no provider is configured or no
// specs survived.
func (w *Workflow) afterDecideImages(ctx blogsmith.Context, s BlogState) string {
	if w.providers.Image == nil || len(s.ImagePlan) == 0 {
		return stageAssemble
	}
	return stageGenerateImages
}

// initStage validates input and prepares the state containers.
func (w *Workflow) initStage(ctx blogsmith.Context, s BlogState) (BlogState, error) {
	topic := strings.TrimSpace(s.Topic)
	if topic == "" {
		return s, &InvalidInputError{Field: "topic", Reason: "must not be empty"}
	}

	s.Topic = topic
	s.Sections = make(map[int]string)
	s.Images = make(map[string]string)

	if w.opts.EnableResearch && w.providers.Research == nil {
		s = s.note(stageInit, "research enabled but no research provider configured; skipping")
	}
	return s, nil
}
