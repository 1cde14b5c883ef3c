package workflow

import (
	"errors"
	"fmt"
)

// ErrTextGeneratorRequired indicates New was called without a text
// generator. Text generation is the only mandatory capability.
var ErrTextGeneratorRequired = errors.New("text generator is required")

// ErrEmptyImagePlan indicates zero image specs survived decide_images.
// The cardinality floor makes this unreachable in practice; it is treated
// as a non-fatal defensive diagnostic, never a run failure.
var ErrEmptyImagePlan = errors.New("image plan empty after fallback")

// InvalidInputError rejects unusable run input before any provider call.
// It is always fatal.
type InvalidInputError struct {
	// Field is the offending input, e.g. "topic".
	Field string
	// Reason explains the rejection.
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// PlanError indicates the planning stage could not produce a usable
// outline: the model was unreachable after retries. Malformed output alone
// never raises this; it degrades to the deterministic fallback plan.
type PlanError struct {
	// Err is the final provider error.
	Err error
}

// Error implements the error interface.
func (e *PlanError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *PlanError) Unwrap() error {
	return e.Err
}
