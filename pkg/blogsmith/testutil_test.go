package blogsmith

import (
	"context"
)

// Test state types used across tests

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// State is a more complex state for testing various scenarios.
type State struct {
	Step     int
	Progress []string
	Initial  string
	Output   string
	Done     bool
	GoLeft   bool
	Count    int
}

// Helper stage functions

// increment is a stage that increments the counter.
func increment(ctx Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// makeTrackingStage creates a stage that records its execution.
func makeTrackingStage(name string, tracker *[]string) StageFunc[State] {
	return func(ctx Context, s State) (State, error) {
		*tracker = append(*tracker, name)
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

// makeFailingStage creates a stage that returns the given error.
func makeFailingStage(err error) StageFunc[State] {
	return func(ctx Context, s State) (State, error) {
		return s, err
	}
}

// makePanicStage creates a stage that panics with the given value.
func makePanicStage(value any) StageFunc[State] {
	return func(ctx Context, s State) (State, error) {
		panic(value)
	}
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
