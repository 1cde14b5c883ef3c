package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/calegray/blogsmith/pkg/blogsmith"
	"github.com/calegray/blogsmith/pkg/blogsmith/observability"
	"github.com/calegray/blogsmith/pkg/blogsmith/provider"
	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// sectionResult carries one writing task's output back to the join.
type sectionResult struct {
	body string
	note string
}

// writeSectionsStage fans out one writing task per plan section and joins
// once every task has either succeeded or produced its fallback body. The
// join guarantees exactly one entry per plan section, which assembly
// relies on. All state writes happen here, on the coordinating goroutine.
func (w *Workflow) writeSectionsStage(ctx blogsmith.Context, s BlogState) (BlogState, error) {
	results := blogsmith.Collect(ctx, s.Plan.Sections, w.opts.SectionConcurrency,
		func(c context.Context, _ int, sec schema.SectionSpec) (sectionResult, error) {
			return w.writeSection(c, s, sec), nil
		})

	degraded := 0
	for i, r := range results {
		sec := s.Plan.Sections[i]

		body := r.Value.body
		note := r.Value.note
		if r.Err != nil {
			// Collect isolates panics and cancellation into the slot.
			body = fallbackSectionBody(sec)
			note = fmt.Sprintf("section %d (%s): %v; using fallback body", sec.ID, sec.Title, r.Err)
		}

		if note != "" {
			s = s.note(stageWriteSections, note)
			degraded++
		}
		s.Sections[sec.ID] = body
	}

	if degraded > 0 {
		observability.LogStageDegraded(ctx.Logger(), stageWriteSections,
			fmt.Sprintf("%d of %d sections degraded", degraded, len(results)))
		w.metrics.RecordDegradation(ctx, stageWriteSections)
	}
	return s, nil
}

// writeSection runs one section's generation with retry. It never returns
// an empty body: exhausted retries produce the fallback placeholder so the
// post stays partial instead of the run aborting.
func (w *Workflow) writeSection(ctx context.Context, s BlogState, sec schema.SectionSpec) sectionResult {
	res := provider.Retry(ctx, w.retry, func(c context.Context) (string, error) {
		return w.providers.Text.Generate(c, provider.TextRequest{
			System:      writerSystem,
			Prompt:      writerPrompt(s.Plan, sec, s.Evidence),
			Model:       w.opts.Model,
			Temperature: w.opts.Temperature,
		})
	})
	if res.Err != nil {
		return sectionResult{
			body: fallbackSectionBody(sec),
			note: fmt.Sprintf("section %d (%s) failed after %d attempts: %v; using fallback body",
				sec.ID, sec.Title, res.Attempts, res.Err),
		}
	}

	out := sectionResult{body: strings.TrimSpace(res.Value)}
	if out.body == "" {
		out.body = fallbackSectionBody(sec)
		out.note = fmt.Sprintf("section %d (%s) came back empty; using fallback body", sec.ID, sec.Title)
	} else if hasPlaceholderCitation(out.body) {
		out.note = fmt.Sprintf("section %d (%s) contains placeholder citations", sec.ID, sec.Title)
	}
	return out
}
