package workflow

import (
	"context"
	"fmt"

	"github.com/calegray/blogsmith/pkg/blogsmith"
	"github.com/calegray/blogsmith/pkg/blogsmith/observability"
	"github.com/calegray/blogsmith/pkg/blogsmith/provider"
	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// planStage asks the text model for the outline and image plan in one
// call. A malformed response gets one corrective retry, then degrades to
// the deterministic fallback outline; only an unreachable model is fatal.
func (w *Workflow) planStage(ctx blogsmith.Context, s BlogState) (BlogState, error) {
	prompt := plannerPrompt(s.Topic, s.Evidence)

	raw, err := w.generateText(ctx, plannerSystem, prompt)
	if err != nil {
		return s, &PlanError{Err: err}
	}

	plan, specs, reason := parseAndValidate(raw)
	if reason == "" {
		s.Plan = plan
		s.ImagePlan = specs
		return s, nil
	}

	ctx.Logger().Warn("planner output rejected, retrying with correction", "reason", reason)
	raw, err = w.generateText(ctx, plannerSystem, prompt+correctiveNote(reason))
	if err != nil {
		return s, &PlanError{Err: err}
	}

	plan, specs, reason = parseAndValidate(raw)
	if reason == "" {
		s.Plan = plan
		s.ImagePlan = specs
		return s, nil
	}

	// Empty posts are not acceptable; a generic outline beats a dead run.
	observability.LogStageDegraded(ctx.Logger(), stagePlan, "using fallback outline")
	w.metrics.RecordDegradation(ctx, stagePlan)
	s = s.note(stagePlan,
		fmt.Sprintf("planner output unusable after corrective retry (%s); using fallback outline", reason))
	s.Plan = fallbackPlan(s.Topic)
	s.ImagePlan = schema.FallbackImagePlan(&s.Plan)
	return s, nil
}

// parseAndValidate returns a non-empty rejection reason when the response
// cannot serve as an outline. Both the outline and the image plan are
// checked, so a cardinality or anchor violation triggers the corrective
// retry; decide_images re-validates anchors once sections are written.
func parseAndValidate(raw string) (schema.Plan, []schema.ImageSpec, string) {
	plan, specs, err := parsePlanResponse(raw)
	if err != nil {
		return plan, specs, err.Error()
	}
	vs := schema.ValidatePlan(&plan)
	vs = append(vs, schema.ValidateImagePlan(specs, &plan)...)
	if len(vs) > 0 {
		return plan, specs, schema.AsError(vs).Error()
	}
	return plan, specs, ""
}

// generateText runs one retried text generation call with the workflow's
// model settings.
func (w *Workflow) generateText(ctx context.Context, system, prompt string) (string, error) {
	res := provider.Retry(ctx, w.retry, func(c context.Context) (string, error) {
		return w.providers.Text.Generate(c, provider.TextRequest{
			System:      system,
			Prompt:      prompt,
			Model:       w.opts.Model,
			Temperature: w.opts.Temperature,
		})
	})
	return res.Value, res.Err
}
