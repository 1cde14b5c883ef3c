package blogsmith

import (
	"context"
	"fmt"
	"sync"
)

// TaskResult holds the outcome of one fan-out task.
// Exactly one of Value or Err is meaningful: when Err is non-nil the
// task failed and Value is the zero value.
type TaskResult[R any] struct {
	// Index is the position of the input that produced this result.
	Index int
	// Value is the task's output.
	Value R
	// Err is the task's failure, nil on success.
	Err error
}

// Failed reports whether the task produced an error.
func (r TaskResult[R]) Failed() bool {
	return r.Err != nil
}

// Collect runs fn once per input in its own goroutine, waits for all tasks
// to finish, and returns one result per input in input order. A failing
// task never affects its siblings: its error is captured in its slot and
// the remaining tasks run to completion.
//
// limit caps the number of concurrently running tasks; zero or negative
// means unlimited. Cancelling ctx aborts tasks that have not yet started
// (their slots carry ctx.Err()); tasks already running are expected to
// honor ctx themselves.
//
// Panics inside fn are contained and surface as errors in the task's slot.
//
// Stages use Collect for per-section writing and per-image generation,
// where the task count is only known at runtime.
func Collect[T, R any](ctx context.Context, inputs []T, limit int, fn func(ctx context.Context, index int, input T) (R, error)) []TaskResult[R] {
	results := make([]TaskResult[R], len(inputs))
	if len(inputs) == 0 {
		return results
	}

	var sem chan struct{}
	if limit > 0 {
		sem = make(chan struct{}, limit)
	}

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(idx int, in T) {
			defer wg.Done()

			// Acquire semaphore if concurrency is limited
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[idx] = TaskResult[R]{Index: idx, Err: ctx.Err()}
					return
				}
			}

			// Bail out if cancelled while queued
			select {
			case <-ctx.Done():
				results[idx] = TaskResult[R]{Index: idx, Err: ctx.Err()}
				return
			default:
			}

			results[idx] = runTask(ctx, idx, in, fn)
		}(i, input)
	}

	wg.Wait()
	return results
}

// runTask executes fn with panic containment.
func runTask[T, R any](ctx context.Context, idx int, input T, fn func(ctx context.Context, index int, input T) (R, error)) (tr TaskResult[R]) {
	tr.Index = idx

	defer func() {
		if r := recover(); r != nil {
			var zero R
			tr.Value = zero
			tr.Err = fmt.Errorf("task %d panicked: %v", idx, r)
		}
	}()

	tr.Value, tr.Err = fn(ctx, idx, input)
	return tr
}
