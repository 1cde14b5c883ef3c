package blogsmith

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent stage.
	ErrEntryNotFound = errors.New("entry point stage not found")

	// ErrStageNotFound indicates an edge references a non-existent stage.
	ErrStageNotFound = errors.New("stage not found")

	// ErrNoPathToEnd indicates no path exists from the entry point to END.
	ErrNoPathToEnd = errors.New("no path to END from entry")
)

// Sentinel errors for execution.
var (
	// ErrMaxIterations indicates the execution loop exceeded the configured limit.
	ErrMaxIterations = errors.New("exceeded maximum iterations")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrInvalidRouterResult indicates a router function returned an empty string.
	ErrInvalidRouterResult = errors.New("router returned empty string")

	// ErrRouterTargetNotFound indicates a router function returned an unknown stage ID.
	ErrRouterTargetNotFound = errors.New("router returned unknown stage")
)

// StageError wraps an error with stage context.
// It provides information about which stage failed and what operation
// was attempted.
type StageError struct {
	// StageID is the identifier of the stage that failed.
	StageID string
	// Op is the operation that failed (e.g., "execute").
	Op string
	// Err is the underlying error from the stage.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.StageID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StageError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from stage execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// StageID is the identifier of the stage that panicked.
	StageID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", e.StageID, e.Value)
}

// CancellationError captures the state when execution was cancelled.
// It preserves the state at the point of cancellation for recovery.
type CancellationError struct {
	// StageID is the stage that was about to execute or was executing.
	StageID string
	// State is the state at cancellation (can type-assert to the actual type).
	State any
	// Cause is the underlying cancellation cause (context.Canceled or
	// context.DeadlineExceeded).
	Cause error
	// WasExecuting is true if cancellation occurred during stage execution.
	WasExecuting bool
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	if e.WasExecuting {
		return fmt.Sprintf("cancelled during stage %s: %v", e.StageID, e.Cause)
	}
	return fmt.Sprintf("cancelled before stage %s: %v", e.StageID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// RouterError wraps errors from conditional edge routing.
// It provides context about which router failed and what it returned.
type RouterError struct {
	// FromStage is the stage with the conditional edge.
	FromStage string
	// Returned is the value the router returned.
	Returned string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromStage, e.Returned, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RouterError) Unwrap() error {
	return e.Err
}

// MaxIterationsError provides context when the loop limit is exceeded.
// It includes the state at termination for inspection.
type MaxIterationsError struct {
	// Max is the configured iteration limit.
	Max int
	// LastStageID is the stage that would have executed next.
	LastStageID string
	// State is the state at termination (can type-assert to the actual type).
	State any
}

// Error implements the error interface.
func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at stage %s", e.Max, e.LastStageID)
}

// Unwrap returns ErrMaxIterations for errors.Is support.
func (e *MaxIterationsError) Unwrap() error {
	return ErrMaxIterations
}
