// Package provider defines the capability interfaces the workflow depends
// on (text generation, image generation, and web research) along with
// concrete backends, retry support, and test doubles.
//
// Providers are injected at run start; the workflow core never constructs
// one itself. Every call is idempotent from the workflow's point of view,
// so wrapping a call in Retry is always safe.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// TextGenerator produces text from a prompt plus context.
type TextGenerator interface {
	Generate(ctx context.Context, req TextRequest) (string, error)
}

// ImageGenerator produces an image for a prompt and returns a reference to
// it (URL or file path). It never returns image bytes directly.
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (string, error)
}

// ResearchProvider returns ranked web snippets for a topic.
// A nil ResearchProvider means the capability is not configured, which is
// distinct from a configured provider returning an error.
type ResearchProvider interface {
	Search(ctx context.Context, topic string, limit int) ([]schema.Evidence, error)
}

// TextRequest configures a single text generation call.
type TextRequest struct {
	// System is the system prompt establishing the model's role.
	System string
	// Prompt is the user-facing instruction and context.
	Prompt string
	// Model overrides the provider's default model when non-empty.
	Model string
	// Temperature controls sampling; zero means provider default.
	Temperature float64
}

// ImageRequest configures a single image generation call.
type ImageRequest struct {
	// Prompt is the full descriptive generation prompt.
	Prompt string
	// Size is the requested dimensions, e.g. "1024x1024". Empty uses the
	// provider default.
	Size string
}

// ProviderError wraps a failed provider call with enough context to decide
// whether a retry is worthwhile.
type ProviderError struct {
	// Provider names the backend, e.g. "openai", "tavily".
	Provider string
	// Op is the operation that failed, e.g. "generate", "search".
	Op string
	// Err is the underlying error.
	Err error
	// Retryable indicates a retry may succeed (rate limit, timeout,
	// transient server error).
	Retryable bool
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a provider error worth retrying.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
