// Package schema defines the structured payloads exchanged between pipeline
// stages and the validators that gate them before they are accepted into
// workflow state.
//
// All validation here is pure: validators inspect a value and return a list
// of violations. No validator calls a generative capability, so every rule
// can be unit tested in isolation.
package schema

import "fmt"

// Image plan cardinality bounds for technical content.
// A technical post carries at least two diagrams and at most three.
const (
	MinImages = 2
	MaxImages = 3
)

// SectionSpec describes one section of the planned post.
type SectionSpec struct {
	// ID orders sections within the plan. IDs are unique per plan and are
	// the keys under which written section bodies are stored.
	ID int `json:"id"`

	// Title is the section heading, without the "##" marker.
	Title string `json:"title"`

	// Goal is one sentence describing what the reader should take away.
	Goal string `json:"goal"`

	// Bullets are the key points the section must cover, in order.
	Bullets []string `json:"bullets"`

	// TargetWords is the target length for the section body.
	TargetWords int `json:"target_words"`

	// NeedsCode indicates the section should include at least one snippet.
	NeedsCode bool `json:"needs_code"`
}

// Plan is the structured outline produced by the planning stage.
type Plan struct {
	Title       string        `json:"title"`
	Audience    string        `json:"audience"`
	Tone        string        `json:"tone"`
	Kind        string        `json:"kind"` // explainer, tutorial, comparison, ...
	Constraints []string      `json:"constraints"`
	Sections    []SectionSpec `json:"sections"`
}

// SectionIDs returns the plan's section identifiers in plan order.
func (p *Plan) SectionIDs() []int {
	ids := make([]int, 0, len(p.Sections))
	for _, s := range p.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

// HasSection reports whether the plan contains a section with the given ID.
func (p *Plan) HasSection(id int) bool {
	for _, s := range p.Sections {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Evidence is a single ranked web snippet returned by the research provider.
type Evidence struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"published_at,omitempty"` // ISO date when known
}

// ImageSpec describes one image to generate and where it belongs.
type ImageSpec struct {
	// ID keys the resolved image reference in workflow state, e.g. "image_1".
	ID string `json:"id"`

	// Placeholder is the inline token a writing model may have emitted,
	// e.g. "[[IMAGE_1]]". Assembly replaces it when present.
	Placeholder string `json:"placeholder"`

	// SectionID anchors the image after the section with this ID.
	SectionID int `json:"section_id"`

	// Prompt is the full descriptive prompt sent to the image model.
	Prompt string `json:"prompt"`

	// Caption is emitted in the final document whether or not the image
	// itself was generated.
	Caption string `json:"caption"`

	// Alt is the image alt text.
	Alt string `json:"alt"`
}

// ImageID returns the canonical identifier for the nth image (1-based).
func ImageID(n int) string {
	return fmt.Sprintf("image_%d", n)
}

// PlaceholderToken returns the inline token for the nth image (1-based).
func PlaceholderToken(n int) string {
	return fmt.Sprintf("[[IMAGE_%d]]", n)
}
