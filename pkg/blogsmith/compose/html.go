package compose

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// HTML renders an assembled markdown document to HTML for the UI and
// persistence collaborators.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
