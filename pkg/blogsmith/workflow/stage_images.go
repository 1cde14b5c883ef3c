package workflow

import (
	"context"
	"fmt"

	"github.com/calegray/blogsmith/pkg/blogsmith"
	"github.com/calegray/blogsmith/pkg/blogsmith/observability"
	"github.com/calegray/blogsmith/pkg/blogsmith/provider"
	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// decideImagesStage finalizes the image plan against the sections that
// were actually written. The planner worked from a pre-writing outline, so
// anchors can be stale: specs anchored to missing sections are dropped
// (recoverable, never fatal), the count is clamped to the ceiling, and the
// plan is refilled to the floor with deterministic fallback specs.
func (w *Workflow) decideImagesStage(ctx blogsmith.Context, s BlogState) (BlogState, error) {
	kept := make([]schema.ImageSpec, 0, len(s.ImagePlan))
	for _, spec := range s.ImagePlan {
		if vs := schema.ValidateImageSpec(spec, &s.Plan); len(vs) > 0 {
			s = s.note(stageDecideImages,
				fmt.Sprintf("dropping image spec %s: %v", spec.ID, schema.AsError(vs)))
			continue
		}
		kept = append(kept, spec)
	}

	if len(kept) > schema.MaxImages {
		s = s.note(stageDecideImages,
			fmt.Sprintf("truncating image plan from %d to %d specs", len(kept), schema.MaxImages))
		kept = kept[:schema.MaxImages]
	}
	if len(kept) < schema.MinImages && len(s.Plan.Sections) > 0 {
		kept = refillImagePlan(kept, &s.Plan)
	}
	s.ImagePlan = kept

	if len(s.ImagePlan) == 0 {
		// Only reachable when the plan itself has no sections to anchor to.
		ctx.Logger().Warn("image plan empty after fallback")
		w.metrics.RecordDegradation(ctx, stageDecideImages)
		s = s.note(stageDecideImages, ErrEmptyImagePlan.Error())
	}

	if w.providers.Image == nil {
		s = s.note(stageDecideImages, "image generation skipped: no image provider configured")
	}
	return s, nil
}

// refillImagePlan tops the plan up to the cardinality floor with fallback
// specs, renumbering them past any IDs already in use.
func refillImagePlan(kept []schema.ImageSpec, plan *schema.Plan) []schema.ImageSpec {
	used := make(map[string]bool, len(kept))
	for _, spec := range kept {
		used[spec.ID] = true
	}

	next := 1
	for _, fb := range schema.FallbackImagePlan(plan) {
		if len(kept) >= schema.MinImages {
			break
		}
		for used[schema.ImageID(next)] {
			next++
		}
		fb.ID = schema.ImageID(next)
		fb.Placeholder = schema.PlaceholderToken(next)
		used[fb.ID] = true
		kept = append(kept, fb)
	}
	return kept
}

// generateImagesStage fans out one generation task per spec. Failures are
// isolated per spec: the entry stays absent and assembly keeps the caption.
// This stage never fails the run.
func (w *Workflow) generateImagesStage(ctx blogsmith.Context, s BlogState) (BlogState, error) {
	results := blogsmith.Collect(ctx, s.ImagePlan, w.opts.ImageConcurrency,
		func(c context.Context, _ int, spec schema.ImageSpec) (string, error) {
			res := provider.Retry(c, w.retry, func(c context.Context) (string, error) {
				return w.providers.Image.Generate(c, provider.ImageRequest{Prompt: spec.Prompt})
			})
			return res.Value, res.Err
		})

	failed := 0
	for i, r := range results {
		spec := s.ImagePlan[i]
		if r.Err != nil || r.Value == "" {
			failed++
			cause := "empty reference returned"
			if r.Err != nil {
				cause = r.Err.Error()
			}
			s = s.note(stageGenerateImages,
				fmt.Sprintf("image %s failed: %s; caption kept, markup omitted", spec.ID, cause))
			continue
		}
		s.Images[spec.ID] = r.Value
	}

	if failed > 0 {
		observability.LogStageDegraded(ctx.Logger(), stageGenerateImages,
			fmt.Sprintf("%d of %d images failed", failed, len(results)))
		w.metrics.RecordDegradation(ctx, stageGenerateImages)
	}
	return s, nil
}
