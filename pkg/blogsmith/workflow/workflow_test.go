package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calegray/blogsmith/pkg/blogsmith"
	"github.com/calegray/blogsmith/pkg/blogsmith/event"
	"github.com/calegray/blogsmith/pkg/blogsmith/provider"
	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// scriptedText routes generation calls by role: planner calls get the
// scripted plan responses in order, writer calls go through writeFn.
// This keeps concurrent section writing deterministic to script.
type scriptedText struct {
	mu            sync.Mutex
	planResponses []string
	planCalls     int
	writeFn       func(prompt string) (string, error)
}

func (s *scriptedText) Generate(_ context.Context, req provider.TextRequest) (string, error) {
	if strings.Contains(req.System, "planning") {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.planCalls >= len(s.planResponses) {
			return "", errors.New("unexpected planner call")
		}
		resp := s.planResponses[s.planCalls]
		s.planCalls++
		return resp, nil
	}

	if s.writeFn != nil {
		return s.writeFn(req.Prompt)
	}
	return "Body text for the requested section.", nil
}

// sectionEcho writes a recognizable body naming the requested section.
func sectionEcho(prompt string) (string, error) {
	for _, title := range []string{"Why Orchestration", "Schedulers", "Wrapping Up"} {
		if strings.Contains(prompt, fmt.Sprintf("%q", title)) {
			return fmt.Sprintf("## %s\n\nBody of %s.", title, title), nil
		}
	}
	return "## Section\n\nGeneric body.", nil
}

func newTestWorkflow(t *testing.T, opts Options, providers Providers, wfOpts ...Option) *Workflow {
	t.Helper()
	w, err := New(opts, providers, wfOpts...)
	require.NoError(t, err)
	return w
}

// TestNew_RequiresTextGenerator rejects a missing text provider.
func TestNew_RequiresTextGenerator(t *testing.T) {
	_, err := New(Options{}, Providers{})
	assert.ErrorIs(t, err, ErrTextGeneratorRequired)
}

// TestRun_ClosedBookNoImages is the canonical degraded scenario: research
// disabled, no image provider. The run completes with captions but no
// markup and exactly one diagnostic noting images were skipped.
func TestRun_ClosedBookNoImages(t *testing.T) {
	text := &scriptedText{planResponses: []string{planJSON}, writeFn: sectionEcho}
	w := newTestWorkflow(t, Options{}, Providers{Text: text})

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Empty(t, state.Images)
	assert.True(t, strings.HasPrefix(state.Document, "# Container Orchestration Basics\n"))

	// All sections written and present in plan order
	require.Len(t, state.Sections, 3)
	for _, title := range []string{"Why Orchestration", "Schedulers", "Wrapping Up"} {
		assert.Contains(t, state.Document, "Body of "+title+".")
	}

	// Captions survive, markup does not
	assert.Contains(t, state.Document, "*Cluster overview*")
	assert.Contains(t, state.Document, "*Scheduling flow*")
	assert.NotContains(t, state.Document, "![")

	// Exactly one diagnostic: images skipped
	require.Len(t, state.Errors, 1)
	assert.Equal(t, stageDecideImages, state.Errors[0].Stage)
	assert.Contains(t, state.Errors[0].Message, "skipped")
}

// TestRun_WithImages verifies the full pipeline with an image provider.
func TestRun_WithImages(t *testing.T) {
	text := &scriptedText{planResponses: []string{planJSON}, writeFn: sectionEcho}
	images := provider.NewMockImage()
	w := newTestWorkflow(t, Options{}, Providers{Text: text, Image: images})

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Len(t, state.Images, 2)
	assert.Equal(t, 2, images.CallCount())
	assert.Contains(t, state.Document, "![")
	assert.Empty(t, state.Errors)
}

// TestRun_SectionCountMatchesPlan verifies exactly one body per plan
// section even when some writing tasks fail.
func TestRun_SectionCountMatchesPlan(t *testing.T) {
	text := &scriptedText{
		planResponses: []string{planJSON},
		writeFn: func(prompt string) (string, error) {
			if strings.Contains(prompt, `"Schedulers"`) {
				return "", errors.New("model overwhelmed")
			}
			return sectionEcho(prompt)
		},
	}
	w := newTestWorkflow(t, Options{}, Providers{Text: text})

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	require.Len(t, state.Sections, 3)

	// The failed section degraded to its fallback body, siblings untouched
	assert.Contains(t, state.Sections[2], "could not be generated")
	assert.Contains(t, state.Sections[1], "Body of Why Orchestration.")
	assert.Contains(t, state.Sections[3], "Body of Wrapping Up.")

	notes := state.NotesFor(stageWriteSections)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "Schedulers")
}

// TestRun_EmptyTopic fails fast with InvalidInputError.
func TestRun_EmptyTopic(t *testing.T) {
	text := &scriptedText{planResponses: []string{planJSON}}
	w := newTestWorkflow(t, Options{}, Providers{Text: text})

	_, err := w.Run(context.Background(), "   ")

	require.Error(t, err)
	var invalidErr *InvalidInputError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "topic", invalidErr.Field)
}

// TestRun_PlannerUnreachableIsFatal verifies an unreachable text model
// fails the run with PlanError.
func TestRun_PlannerUnreachableIsFatal(t *testing.T) {
	text := provider.NewMockText().WithError(errors.New("connection refused"))
	w := newTestWorkflow(t, Options{}, Providers{Text: text},
		WithRetryConfig(provider.NoRetry))

	_, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.Error(t, err)
	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
}

// TestRun_MalformedPlanThenCorrected verifies one corrective retry fixes a
// malformed planner response without any degradation note.
func TestRun_MalformedPlanThenCorrected(t *testing.T) {
	text := &scriptedText{
		planResponses: []string{"Sorry, here is some prose instead of JSON.", planJSON},
		writeFn:       sectionEcho,
	}
	w := newTestWorkflow(t, Options{}, Providers{Text: text})

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Equal(t, 2, text.planCalls)
	assert.Equal(t, "Container Orchestration Basics", state.Plan.Title)
	assert.Empty(t, state.NotesFor(stagePlan))
}

// TestRun_MalformedPlanTwiceFallsBack verifies the deterministic fallback
// outline after the corrective retry also fails.
func TestRun_MalformedPlanTwiceFallsBack(t *testing.T) {
	text := &scriptedText{
		planResponses: []string{"not json", "still not json"},
		writeFn: func(prompt string) (string, error) {
			return "## Section\n\nFallback-outline body.", nil
		},
	}
	w := newTestWorkflow(t, Options{}, Providers{Text: text})

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Equal(t, "Container Orchestration Basics", state.Plan.Title)
	require.Len(t, state.Plan.Sections, 3)
	assert.Equal(t, "Introduction", state.Plan.Sections[0].Title)

	notes := state.NotesFor(stagePlan)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "fallback outline")

	// Fallback image plan respects the cardinality floor
	assert.GreaterOrEqual(t, len(state.ImagePlan), schema.MinImages)
	assert.LessOrEqual(t, len(state.ImagePlan), schema.MaxImages)
}

// TestRun_OversizedImagePlanRetried verifies an out-of-bounds image count
// is rejected at planning and corrected on the retry, not silently clamped
// downstream.
func TestRun_OversizedImagePlanRetried(t *testing.T) {
	imageSpec := func(n int) string {
		return fmt.Sprintf(`{"id": "image_%d", "placeholder": "[[IMAGE_%d]]", "section_id": 1, "prompt": "diagram %d", "caption": "caption %d", "alt": "alt %d"}`,
			n, n, n, n, n)
	}
	var specs []string
	for n := 1; n <= 5; n++ {
		specs = append(specs, imageSpec(n))
	}
	oversized := fmt.Sprintf(`{"title": "T",
		"sections": [{"id": 1, "title": "Why Orchestration", "goal": "g", "target_words": 300}],
		"images": [%s]}`, strings.Join(specs, ","))

	text := &scriptedText{planResponses: []string{oversized, planJSON}, writeFn: sectionEcho}
	w := newTestWorkflow(t, Options{}, Providers{Text: text})

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Equal(t, 2, text.planCalls)
	assert.Len(t, state.ImagePlan, 2)
	assert.Empty(t, state.NotesFor(stagePlan))
}

// TestRun_ImagePlanCardinality forces pathological planner image counts
// into [MinImages, MaxImages]: one corrective retry, then the fallback
// plan when the model repeats the violation.
func TestRun_ImagePlanCardinality(t *testing.T) {
	sectionsJSON := `"sections": [
		{"id": 1, "title": "Why Orchestration", "goal": "g", "target_words": 300},
		{"id": 2, "title": "Schedulers", "goal": "g", "target_words": 400},
		{"id": 3, "title": "Wrapping Up", "goal": "g", "target_words": 200}
	]`

	imageSpec := func(n int) string {
		return fmt.Sprintf(`{"id": "image_%d", "placeholder": "[[IMAGE_%d]]", "section_id": %d, "prompt": "diagram %d", "caption": "caption %d", "alt": "alt %d"}`,
			n, n, (n%3)+1, n, n, n)
	}

	testCases := []struct {
		name  string
		count int
	}{
		{"zero proposed", 0},
		{"one proposed", 1},
		{"five proposed", 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var specs []string
			for n := 1; n <= tc.count; n++ {
				specs = append(specs, imageSpec(n))
			}
			raw := fmt.Sprintf(`{"title": "T", %s, "images": [%s]}`,
				sectionsJSON, strings.Join(specs, ","))

			text := &scriptedText{planResponses: []string{raw, raw}, writeFn: sectionEcho}
			w := newTestWorkflow(t, Options{}, Providers{Text: text})

			state, err := w.Run(context.Background(), "Container Orchestration Basics")

			require.NoError(t, err)
			assert.Equal(t, 2, text.planCalls)
			assert.GreaterOrEqual(t, len(state.ImagePlan), schema.MinImages)
			assert.LessOrEqual(t, len(state.ImagePlan), schema.MaxImages)
			require.NotEmpty(t, state.NotesFor(stagePlan))
			assert.Contains(t, state.NotesFor(stagePlan)[0].Message, "fallback outline")
		})
	}
}

// TestRun_BadImageAnchorRetried verifies a spec anchored to a non-existent
// section is rejected at planning and corrected on the retry.
func TestRun_BadImageAnchorRetried(t *testing.T) {
	raw := `{"title": "T",
		"sections": [
			{"id": 1, "title": "Why Orchestration", "goal": "g", "target_words": 300},
			{"id": 2, "title": "Schedulers", "goal": "g", "target_words": 400}
		],
		"images": [
			{"id": "image_1", "placeholder": "[[IMAGE_1]]", "section_id": 1, "prompt": "p", "caption": "good", "alt": "a"},
			{"id": "image_2", "placeholder": "[[IMAGE_2]]", "section_id": 99, "prompt": "p", "caption": "stale", "alt": "a"}
		]}`

	text := &scriptedText{planResponses: []string{raw, planJSON}, writeFn: sectionEcho}
	w := newTestWorkflow(t, Options{}, Providers{Text: text})

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Equal(t, 2, text.planCalls)
	for _, spec := range state.ImagePlan {
		assert.True(t, state.Plan.HasSection(spec.SectionID))
	}
}

// TestDecideImages_StaleAnchorDropped verifies the post-writing safety net:
// a spec whose anchor no longer matches a section is dropped and the plan
// refilled to the floor.
func TestDecideImages_StaleAnchorDropped(t *testing.T) {
	text := &scriptedText{planResponses: []string{planJSON}}
	w := newTestWorkflow(t, Options{}, Providers{Text: text})

	state := BlogState{
		Topic: "Container Orchestration Basics",
		Plan: schema.Plan{
			Title: "T",
			Sections: []schema.SectionSpec{
				{ID: 1, Title: "Why Orchestration", Goal: "g", TargetWords: 300},
				{ID: 2, Title: "Schedulers", Goal: "g", TargetWords: 400},
			},
		},
		ImagePlan: []schema.ImageSpec{
			{ID: "image_1", Placeholder: "[[IMAGE_1]]", SectionID: 1, Prompt: "p", Caption: "good", Alt: "a"},
			{ID: "image_2", Placeholder: "[[IMAGE_2]]", SectionID: 99, Prompt: "p", Caption: "stale", Alt: "a"},
		},
	}

	state, err := w.decideImagesStage(blogsmith.NewContext(context.Background()), state)

	require.NoError(t, err)
	assert.Len(t, state.ImagePlan, schema.MinImages)
	for _, spec := range state.ImagePlan {
		assert.NotEqual(t, 99, spec.SectionID)
		assert.True(t, state.Plan.HasSection(spec.SectionID))
	}

	notes := state.NotesFor(stageDecideImages)
	require.NotEmpty(t, notes)
	assert.Contains(t, notes[0].Message, "image_2")
}

// TestRun_ImageFailureIsolated verifies one failed image never fails the
// run or discards its siblings.
func TestRun_ImageFailureIsolated(t *testing.T) {
	text := &scriptedText{planResponses: []string{planJSON}, writeFn: sectionEcho}
	images := provider.NewMockImage().FailOn(1)
	w := newTestWorkflow(t, Options{}, Providers{Text: text, Image: images},
		WithRetryConfig(provider.NoRetry))

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Len(t, state.Images, 1)

	notes := state.NotesFor(stageGenerateImages)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "caption kept")

	// Both captions survive regardless of which call failed
	assert.Contains(t, state.Document, "*Cluster overview*")
	assert.Contains(t, state.Document, "*Scheduling flow*")
}

// TestRun_ResearchFeedsPrompts verifies evidence reaches the planner.
func TestRun_ResearchFeedsPrompts(t *testing.T) {
	text := &scriptedText{planResponses: []string{planJSON}, writeFn: sectionEcho}

	research := provider.NewMockResearch(
		schema.Evidence{Title: "Borg paper", URL: "https://research.google/borg", Snippet: "cluster management"},
		schema.Evidence{Title: "Borg paper", URL: "https://research.google/borg", Snippet: "duplicate"},
		schema.Evidence{Title: "K8s docs", URL: "https://kubernetes.io/docs", Snippet: "scheduling"},
	)

	w := newTestWorkflow(t, Options{EnableResearch: true},
		Providers{Text: text, Research: research})

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Equal(t, 1, research.CallCount())

	// Deduped by URL
	require.Len(t, state.Evidence, 2)
	assert.Equal(t, "https://research.google/borg", state.Evidence[0].URL)
	assert.Equal(t, "https://kubernetes.io/docs", state.Evidence[1].URL)
}

// TestRun_ResearchFailureDegrades verifies a failing research provider
// never fails the run.
func TestRun_ResearchFailureDegrades(t *testing.T) {
	text := &scriptedText{planResponses: []string{planJSON}, writeFn: sectionEcho}
	research := provider.NewMockResearch().WithError(errors.New("rate limited"))
	w := newTestWorkflow(t, Options{EnableResearch: true},
		Providers{Text: text, Research: research},
		WithRetryConfig(provider.NoRetry))

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Empty(t, state.Evidence)
	assert.NotEmpty(t, state.Document)

	notes := state.NotesFor(stageResearch)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "continuing without evidence")
}

// TestRun_ResearchWithoutProviderSkips verifies enabling research without
// a provider routes straight to planning with a diagnostic.
func TestRun_ResearchWithoutProviderSkips(t *testing.T) {
	text := &scriptedText{planResponses: []string{planJSON}, writeFn: sectionEcho}
	w := newTestWorkflow(t, Options{EnableResearch: true}, Providers{Text: text})

	state, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Empty(t, state.Evidence)

	notes := state.NotesFor(stageInit)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "no research provider")
}

// TestRun_EmitsProgress verifies stage transitions reach a subscriber.
func TestRun_EmitsProgress(t *testing.T) {
	var mu sync.Mutex
	var stages []string
	collector := event.EmitterFunc(func(p event.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Status == event.StatusCompleted {
			stages = append(stages, p.Stage)
		}
	})

	text := &scriptedText{planResponses: []string{planJSON}, writeFn: sectionEcho}
	w := newTestWorkflow(t, Options{}, Providers{Text: text}, WithEmitter(collector))

	_, err := w.Run(context.Background(), "Container Orchestration Basics")

	require.NoError(t, err)
	assert.Equal(t, []string{stageInit, stagePlan, stageWriteSections,
		stageDecideImages, stageAssemble}, stages)
}

// TestRun_Cancellation verifies a cancelled context aborts the run.
func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text := &scriptedText{planResponses: []string{planJSON}, writeFn: sectionEcho}
	w := newTestWorkflow(t, Options{}, Providers{Text: text})

	_, err := w.Run(ctx, "Container Orchestration Basics")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
