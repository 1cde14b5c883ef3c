// Package compose assembles the final blog document from plan-ordered
// sections and resolved images. Assembly is deterministic: the same inputs
// always produce byte-identical output, and concurrency upstream never
// affects ordering here.
package compose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// ErrMissingSection indicates the plan references a section that has no
// written body. The writing stage guarantees one body per plan section, so
// hitting this is a programming-contract violation, not a user error.
var ErrMissingSection = errors.New("section missing from written sections")

// Document merges written sections and resolved images into the final
// markdown document.
//
// Sections are concatenated in plan order under a top-level title heading.
// Each image spec contributes a block at its anchor: if the section body
// contains the spec's placeholder token, the token is replaced in place;
// otherwise the block is appended after the anchored section. When the
// image was not generated (no entry in images), the markup is omitted but
// the caption is still emitted, so a failed image never truncates
// surrounding content.
//
// Specs anchored to a section that is not in the plan are appended at the
// end of the document rather than dropped, preserving their captions.
func Document(plan schema.Plan, sections map[int]string, imagePlan []schema.ImageSpec, images map[string]string) (string, error) {
	// Group specs by anchored section, preserving plan order within a group.
	anchored := make(map[int][]schema.ImageSpec)
	known := make(map[int]bool, len(plan.Sections))
	for _, sec := range plan.Sections {
		known[sec.ID] = true
	}
	var orphans []schema.ImageSpec
	for _, spec := range imagePlan {
		if known[spec.SectionID] {
			anchored[spec.SectionID] = append(anchored[spec.SectionID], spec)
		} else {
			orphans = append(orphans, spec)
		}
	}

	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(strings.TrimSpace(plan.Title))
	b.WriteString("\n")

	for _, sec := range plan.Sections {
		body, ok := sections[sec.ID]
		if !ok {
			return "", fmt.Errorf("%w: section %d (%s)", ErrMissingSection, sec.ID, sec.Title)
		}
		body = strings.TrimSpace(body)

		var trailing []string
		for _, spec := range anchored[sec.ID] {
			block := imageBlock(spec, images)
			if spec.Placeholder != "" && strings.Contains(body, spec.Placeholder) {
				body = strings.ReplaceAll(body, spec.Placeholder, block)
			} else {
				trailing = append(trailing, block)
			}
		}

		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
		for _, block := range trailing {
			b.WriteString("\n")
			b.WriteString(block)
			b.WriteString("\n")
		}
	}

	for _, spec := range orphans {
		b.WriteString("\n")
		b.WriteString(imageBlock(spec, images))
		b.WriteString("\n")
	}

	return b.String(), nil
}

// imageBlock renders one image spec to markdown. The caption line is always
// present; the image markup only when the spec's image was resolved.
func imageBlock(spec schema.ImageSpec, images map[string]string) string {
	caption := strings.TrimSpace(spec.Caption)
	ref, ok := images[spec.ID]
	if !ok || ref == "" {
		if caption == "" {
			return ""
		}
		return "*" + caption + "*"
	}

	alt := strings.TrimSpace(spec.Alt)
	if alt == "" {
		alt = caption
	}

	if caption == "" {
		return fmt.Sprintf("![%s](%s)", alt, ref)
	}
	return fmt.Sprintf("![%s](%s)\n\n*%s*", alt, ref, caption)
}

// Slug derives a filesystem-friendly name from a post title.
// Lowercases, maps runs of non-alphanumerics to single hyphens, and caps
// the length so generated filenames stay reasonable.
func Slug(title string) string {
	const maxLen = 80

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	if slug == "" {
		return "post"
	}
	return slug
}
