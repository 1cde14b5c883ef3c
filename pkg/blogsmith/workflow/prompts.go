package workflow

import (
	"fmt"
	"strings"

	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

const plannerSystem = `You are a senior technical editor planning a blog post.
You respond with a single JSON object and nothing else: no prose, no markdown fences.`

const writerSystem = `You are a senior technical writer producing one section of a blog post.
You write clear, accurate markdown. You never invent citations: link only to the provided sources, and if none are provided, use no links at all.`

// plannerPrompt asks for the outline and the image plan in one call.
func plannerPrompt(topic string, evidence []schema.Evidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Plan a technical blog post about: %s\n\n", topic)

	if len(evidence) > 0 {
		b.WriteString("Research snippets to ground the plan:\n")
		for _, ev := range evidence {
			fmt.Fprintf(&b, "- %s (%s): %s\n", ev.Title, ev.URL, ev.Snippet)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Respond with one JSON object:
{
  "title": "post title",
  "audience": "who this is for",
  "tone": "writing tone",
  "kind": "explainer | tutorial | comparison | deep-dive",
  "constraints": ["any constraints worth noting"],
  "sections": [
    {"id": 1, "title": "...", "goal": "one sentence", "bullets": ["point", "point"], "target_words": 300, "needs_code": false}
  ],
  "images": [
    {"id": "image_1", "placeholder": "[[IMAGE_1]]", "section_id": 1, "prompt": "full image generation prompt", "caption": "short caption", "alt": "alt text"}
  ]
}

Rules:
- 3 to 6 sections with unique integer ids starting at 1, in reading order.
- Exactly 2 or 3 images. Every section_id must reference one of your sections.
- Image prompts describe technical diagrams (architecture, flow, comparison), not photos.`)

	return b.String()
}

// correctiveNote is appended to the planner prompt on a retry after the
// first response failed to parse or validate.
func correctiveNote(reason string) string {
	return fmt.Sprintf("\n\nYour previous response was rejected: %s\nRespond again with ONLY the JSON object, exactly in the shape specified.", reason)
}

// writerPrompt asks for one section body.
func writerPrompt(plan schema.Plan, sec schema.SectionSpec, evidence []schema.Evidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Post: %s\n", plan.Title)
	if plan.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", plan.Audience)
	}
	if plan.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", plan.Tone)
	}

	b.WriteString("\nFull outline for context:\n")
	for _, s := range plan.Sections {
		fmt.Fprintf(&b, "%d. %s\n", s.ID, s.Title)
	}

	fmt.Fprintf(&b, "\nWrite ONLY section %d: %q\n", sec.ID, sec.Title)
	if sec.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", sec.Goal)
	}
	if len(sec.Bullets) > 0 {
		b.WriteString("Cover these points, in order:\n")
		for _, bullet := range sec.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
	}
	if sec.TargetWords > 0 {
		fmt.Fprintf(&b, "Target length: about %d words (within 15%% either way).\n", sec.TargetWords)
	}
	if sec.NeedsCode {
		b.WriteString("Include at least one short, runnable code snippet.\n")
	}

	if len(evidence) > 0 {
		b.WriteString("\nCite only from these sources when you link:\n")
		for _, ev := range evidence {
			fmt.Fprintf(&b, "- %s: %s\n", ev.Title, ev.URL)
		}
	} else {
		b.WriteString("\nNo sources are available; do not include links.\n")
	}

	fmt.Fprintf(&b, "\nStart with the heading \"## %s\". Output markdown only.\n", sec.Title)

	return b.String()
}

// fallbackSectionBody is the degraded stand-in when a section's writing
// task fails after retries. Partial posts beat aborted runs.
func fallbackSectionBody(sec schema.SectionSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", sec.Title)
	if sec.Goal != "" {
		b.WriteString(sec.Goal)
		b.WriteString("\n\n")
	}
	b.WriteString("*This section could not be generated.*")
	if len(sec.Bullets) > 0 {
		b.WriteString(" It was planned to cover:\n")
		for _, bullet := range sec.Bullets {
			fmt.Fprintf(&b, "\n- %s", bullet)
		}
	}
	return b.String()
}

// fallbackPlan is the deterministic outline used when the planner's output
// stays malformed after the corrective retry.
func fallbackPlan(topic string) schema.Plan {
	return schema.Plan{
		Title:    topic,
		Audience: "software engineers",
		Tone:     "practical",
		Kind:     "explainer",
		Sections: []schema.SectionSpec{
			{
				ID:          1,
				Title:       "Introduction",
				Goal:        fmt.Sprintf("Explain what %s is and why it matters.", topic),
				TargetWords: 250,
			},
			{
				ID:          2,
				Title:       "Core Concepts",
				Goal:        fmt.Sprintf("Walk through the key ideas behind %s.", topic),
				TargetWords: 450,
			},
			{
				ID:          3,
				Title:       "Practical Takeaways",
				Goal:        "Summarize what to apply and where to go next.",
				TargetWords: 250,
			},
		},
	}
}

// placeholderCitationMarkers flag invented or stubbed links in model output.
var placeholderCitationMarkers = []string{
	"example.com",
	"citation needed",
	"[source]",
	"(url)",
}

// hasPlaceholderCitation reports whether a section body contains a stub
// citation the model invented instead of using provided sources.
func hasPlaceholderCitation(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range placeholderCitationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
