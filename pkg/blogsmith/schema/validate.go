package schema

import (
	"fmt"
	"strings"
)

// Violation is a single failed validation rule.
type Violation struct {
	// Field names the offending field, e.g. "sections[2].title".
	Field string
	// Message describes the rule that failed.
	Message string
}

// String formats the violation as "field: message".
func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// ValidationError wraps one or more violations as an error.
// Stages use the violation list for corrective retries; the error form is
// what surfaces in logs and state diagnostics.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// AsError returns a *ValidationError for the violations, or nil if there
// are none.
func AsError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// ValidateSection checks a single section spec.
// Rules: non-empty title, positive target word count.
func ValidateSection(s SectionSpec) []Violation {
	var out []Violation
	if strings.TrimSpace(s.Title) == "" {
		out = append(out, Violation{Field: "title", Message: "must not be empty"})
	}
	if s.TargetWords <= 0 {
		out = append(out, Violation{Field: "target_words", Message: "must be positive"})
	}
	return out
}

// ValidatePlan checks the outline as a whole: non-empty title, at least one
// section, unique section IDs, and each section valid.
func ValidatePlan(p *Plan) []Violation {
	var out []Violation
	if p == nil {
		return []Violation{{Field: "plan", Message: "missing"}}
	}
	if strings.TrimSpace(p.Title) == "" {
		out = append(out, Violation{Field: "title", Message: "must not be empty"})
	}
	if len(p.Sections) == 0 {
		out = append(out, Violation{Field: "sections", Message: "must contain at least one section"})
	}
	seen := make(map[int]bool, len(p.Sections))
	for i, s := range p.Sections {
		if seen[s.ID] {
			out = append(out, Violation{
				Field:   fmt.Sprintf("sections[%d].id", i),
				Message: fmt.Sprintf("duplicate section id %d", s.ID),
			})
		}
		seen[s.ID] = true
		for _, v := range ValidateSection(s) {
			out = append(out, Violation{
				Field:   fmt.Sprintf("sections[%d].%s", i, v.Field),
				Message: v.Message,
			})
		}
	}
	return out
}

// ValidateImageSpec checks a single image spec against the plan it anchors
// into. Rules: non-empty generation prompt, anchor references an existing
// section.
func ValidateImageSpec(spec ImageSpec, plan *Plan) []Violation {
	var out []Violation
	if strings.TrimSpace(spec.Prompt) == "" {
		out = append(out, Violation{Field: "prompt", Message: "must not be empty"})
	}
	if plan == nil || !plan.HasSection(spec.SectionID) {
		out = append(out, Violation{
			Field:   "section_id",
			Message: fmt.Sprintf("anchor references unknown section %d", spec.SectionID),
		})
	}
	return out
}

// ValidateImagePlan checks the whole image plan: cardinality within
// [MinImages, MaxImages] and every spec individually valid.
func ValidateImagePlan(specs []ImageSpec, plan *Plan) []Violation {
	var out []Violation
	if len(specs) < MinImages || len(specs) > MaxImages {
		out = append(out, Violation{
			Field: "images",
			Message: fmt.Sprintf("must contain between %d and %d specs, got %d",
				MinImages, MaxImages, len(specs)),
		})
	}
	for i, spec := range specs {
		for _, v := range ValidateImageSpec(spec, plan) {
			out = append(out, Violation{
				Field:   fmt.Sprintf("images[%d].%s", i, v.Field),
				Message: v.Message,
			})
		}
	}
	return out
}

// FallbackImagePlan synthesizes a deterministic minimum image plan for the
// given outline: MinImages generic diagram specs anchored to the first and
// middle sections. Used when the model cannot produce a valid plan after a
// corrective retry.
func FallbackImagePlan(plan *Plan) []ImageSpec {
	if plan == nil || len(plan.Sections) == 0 {
		return nil
	}

	anchors := []int{plan.Sections[0].ID, plan.Sections[len(plan.Sections)/2].ID}
	kinds := []struct {
		prompt  string
		caption string
		alt     string
	}{
		{
			prompt:  "Clean technical architecture diagram illustrating the main components and data flow of: %s. Flat design, labeled boxes and arrows, white background.",
			caption: "High-level architecture overview.",
			alt:     "Architecture diagram",
		},
		{
			prompt:  "Clear workflow flowchart showing the key steps and decision points of: %s. Flat design, numbered steps, white background.",
			caption: "Step-by-step workflow.",
			alt:     "Workflow flowchart",
		},
	}

	specs := make([]ImageSpec, 0, MinImages)
	for i := 0; i < MinImages; i++ {
		k := kinds[i%len(kinds)]
		specs = append(specs, ImageSpec{
			ID:          ImageID(i + 1),
			Placeholder: PlaceholderToken(i + 1),
			SectionID:   anchors[i%len(anchors)],
			Prompt:      fmt.Sprintf(k.prompt, plan.Title),
			Caption:     k.caption,
			Alt:         k.alt,
		})
	}
	return specs
}
