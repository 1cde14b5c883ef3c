package workflow

import (
	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// StageNote is a non-fatal diagnostic accumulated during a run: degraded
// stages, skipped capabilities, dropped image specs. Notes never stop the
// pipeline; they surface in the final state for the caller to report.
type StageNote struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// BlogState is the state threaded through the pipeline. Each field has a
// single writing stage; concurrent fan-out tasks return their outputs to
// the coordinating goroutine, which performs the only writes, so no locks
// guard this struct.
type BlogState struct {
	// RunID identifies the run that produced this state.
	RunID string `json:"run_id"`

	// Topic is the user's input, set once at init.
	Topic string `json:"topic"`

	// Evidence is written by the research stage, empty when research is
	// disabled or failed.
	Evidence []schema.Evidence `json:"evidence,omitempty"`

	// Plan is the structured outline, written by the planning stage.
	Plan schema.Plan `json:"plan"`

	// Sections maps section ID to written body. Populated at the
	// write_sections join with exactly one entry per plan section.
	Sections map[int]string `json:"sections"`

	// ImagePlan is the final image plan after decide_images re-anchoring.
	ImagePlan []schema.ImageSpec `json:"image_plan,omitempty"`

	// Images maps image spec ID to a resolved reference (URL or path).
	// A spec whose generation failed simply has no entry.
	Images map[string]string `json:"images,omitempty"`

	// Document is the assembled markdown, written once by assemble.
	Document string `json:"document,omitempty"`

	// Errors collects non-fatal diagnostics in occurrence order.
	Errors []StageNote `json:"errors,omitempty"`
}

// note appends a diagnostic and returns the updated state.
func (s BlogState) note(stage, message string) BlogState {
	s.Errors = append(s.Errors, StageNote{Stage: stage, Message: message})
	return s
}

// NotesFor returns the diagnostics recorded by the given stage.
func (s *BlogState) NotesFor(stage string) []StageNote {
	var out []StageNote
	for _, n := range s.Errors {
		if n.Stage == stage {
			out = append(out, n)
		}
	}
	return out
}
