package workflow

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// errNotJSON indicates the model response contained no parseable JSON object.
var errNotJSON = errors.New("response contains no JSON object")

// parsePlanResponse extracts the outline and image specs from a planner
// response. It tolerates markdown fences and prose around the JSON object;
// field-level validation is the caller's job.
func parsePlanResponse(raw string) (schema.Plan, []schema.ImageSpec, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" || !gjson.Valid(cleaned) {
		return schema.Plan{}, nil, errNotJSON
	}

	root := gjson.Parse(cleaned)

	plan := schema.Plan{
		Title:    root.Get("title").String(),
		Audience: root.Get("audience").String(),
		Tone:     root.Get("tone").String(),
		Kind:     root.Get("kind").String(),
	}
	for _, c := range root.Get("constraints").Array() {
		if s := c.String(); s != "" {
			plan.Constraints = append(plan.Constraints, s)
		}
	}
	for _, s := range root.Get("sections").Array() {
		sec := schema.SectionSpec{
			ID:          int(s.Get("id").Int()),
			Title:       s.Get("title").String(),
			Goal:        s.Get("goal").String(),
			TargetWords: int(s.Get("target_words").Int()),
			NeedsCode:   s.Get("needs_code").Bool(),
		}
		for _, b := range s.Get("bullets").Array() {
			if v := b.String(); v != "" {
				sec.Bullets = append(sec.Bullets, v)
			}
		}
		plan.Sections = append(plan.Sections, sec)
	}

	var specs []schema.ImageSpec
	for i, img := range root.Get("images").Array() {
		spec := schema.ImageSpec{
			ID:          img.Get("id").String(),
			Placeholder: img.Get("placeholder").String(),
			SectionID:   int(img.Get("section_id").Int()),
			Prompt:      img.Get("prompt").String(),
			Caption:     img.Get("caption").String(),
			Alt:         img.Get("alt").String(),
		}
		// Models sometimes omit the bookkeeping fields; fill canonically.
		if spec.ID == "" {
			spec.ID = schema.ImageID(i + 1)
		}
		if spec.Placeholder == "" {
			spec.Placeholder = schema.PlaceholderToken(i + 1)
		}
		specs = append(specs, spec)
	}

	return plan, specs, nil
}

// extractJSON returns the outermost JSON object in raw, stripping markdown
// fences and any surrounding prose. Returns "" when no object is present.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Strip a leading ```json / ``` fence and its closer.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
