package workflow

import (
	"github.com/calegray/blogsmith/pkg/blogsmith"
	"github.com/calegray/blogsmith/pkg/blogsmith/compose"
)

// assembleStage merges sections and images into the final document. It
// makes no external calls; the only possible failure is a contract
// violation (plan section with no written body), which write_sections'
// completion guarantee rules out.
func (w *Workflow) assembleStage(ctx blogsmith.Context, s BlogState) (BlogState, error) {
	doc, err := compose.Document(s.Plan, s.Sections, s.ImagePlan, s.Images)
	if err != nil {
		return s, err
	}
	s.Document = doc

	ctx.Logger().Info("document assembled",
		"sections", len(s.Plan.Sections),
		"images", len(s.Images),
		"bytes", len(doc))
	return s, nil
}
