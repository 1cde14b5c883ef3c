package workflow

import (
	"context"
	"fmt"

	"github.com/calegray/blogsmith/pkg/blogsmith"
	"github.com/calegray/blogsmith/pkg/blogsmith/observability"
	"github.com/calegray/blogsmith/pkg/blogsmith/provider"
	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// researchStage gathers evidence for the topic. Research is best-effort:
// any failure degrades to an empty evidence set and the run continues.
func (w *Workflow) researchStage(ctx blogsmith.Context, s BlogState) (BlogState, error) {
	limit := w.opts.maxEvidence()

	res := provider.Retry(ctx, w.retry, func(c context.Context) ([]schema.Evidence, error) {
		return w.providers.Research.Search(c, s.Topic, limit)
	})
	if res.Err != nil {
		observability.LogStageDegraded(ctx.Logger(), stageResearch, "continuing without evidence")
		w.metrics.RecordDegradation(ctx, stageResearch)
		return s.note(stageResearch,
			fmt.Sprintf("research failed after %d attempts: %v; continuing without evidence", res.Attempts, res.Err)), nil
	}

	s.Evidence = dedupeEvidence(res.Value, limit)
	ctx.Logger().Info("research complete", "snippets", len(s.Evidence))
	return s, nil
}

// dedupeEvidence drops repeated URLs (keeping first occurrence, which is
// the highest ranked) and caps the result.
func dedupeEvidence(in []schema.Evidence, limit int) []schema.Evidence {
	seen := make(map[string]bool, len(in))
	out := make([]schema.Evidence, 0, len(in))
	for _, ev := range in {
		if ev.URL == "" || seen[ev.URL] {
			continue
		}
		seen[ev.URL] = true
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
