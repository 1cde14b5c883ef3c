package blogsmith

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/calegray/blogsmith/pkg/blogsmith/event"
	"github.com/calegray/blogsmith/pkg/blogsmith/observability"
)

// Run executes the pipeline with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last stage executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// Execution flow:
//  1. Start at the entry point stage
//  2. Check for cancellation
//  3. Execute the current stage
//  4. Determine the next stage (via simple or conditional edge)
//  5. Repeat until END is reached or an error occurs
//
// Example:
//
//	ctx := blogsmith.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState)
//	if err != nil {
//	    // result contains state at point of failure
//	}
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Run ID for observability and events (from config or context)
	if cfg.runID == "" {
		cfg.runID = ctx.RunID()
	}
	if cfg.logger == nil {
		cfg.logger = ctx.Logger()
	}

	startTime := time.Now()

	observability.LogRunStart(cfg.logger, cfg.runID, cfg.topic)

	// Start run span if tracing enabled
	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, cfg.runID, cfg.topic)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	// Execute the pipeline
	var stageCount int
	result, stageCount, runErr = cg.runLoop(execCtx, ctx, state, &cfg)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())

	cfg.metrics.RecordRun(ctx, runErr == nil, duration)

	if runErr != nil {
		// Get last stage from error if available
		lastStage := ""
		switch e := runErr.(type) {
		case *StageError:
			lastStage = e.StageID
		case *PanicError:
			lastStage = e.StageID
		case *MaxIterationsError:
			lastStage = e.LastStageID
		case *CancellationError:
			lastStage = e.StageID
		}
		observability.LogRunError(cfg.logger, cfg.runID, runErr, durationMs, lastStage)
	} else {
		observability.LogRunComplete(cfg.logger, cfg.runID, durationMs, stageCount)
	}

	return result, runErr
}

// runLoop walks the graph from the entry point until END.
// tracingCtx carries span context; execCtx is the pipeline Context.
// Returns the final state, stage count, and any error.
func (cg *CompiledGraph[S]) runLoop(tracingCtx context.Context, execCtx Context, state S, cfg *runConfig) (S, int, error) {
	current := cg.entryPoint
	iterations := 0
	stageCount := 0

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, stageCount, &MaxIterationsError{
				Max:         cfg.maxIterations,
				LastStageID: current,
				State:       state,
			}
		}

		// Check for cancellation before executing the stage
		select {
		case <-execCtx.Done():
			return state, stageCount, &CancellationError{
				StageID:      current,
				State:        state,
				Cause:        execCtx.Err(),
				WasExecuting: false,
			}
		default:
		}

		observability.LogStageStart(cfg.logger, current)
		cfg.emitter.Emit(event.Progress{
			RunID:     cfg.runID,
			Stage:     current,
			Status:    event.StatusStarted,
			Timestamp: time.Now(),
		})

		// Start stage span if tracing enabled
		stageTracingCtx := tracingCtx
		var stageSpan trace.Span
		if cfg.tracingEnabled {
			stageTracingCtx, stageSpan = cfg.spans.StartStageSpan(tracingCtx, current)
		}

		stageStart := time.Now()

		var stageErr error
		state, stageErr = cg.executeStage(execCtx, current, state)

		stageDuration := time.Since(stageStart)
		stageDurationMs := float64(stageDuration.Milliseconds())

		cfg.metrics.RecordStageExecution(stageTracingCtx, current, stageDuration, stageErr)

		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(stageSpan, stageErr)
		}

		if stageErr != nil {
			observability.LogStageError(cfg.logger, current, stageErr)
			cfg.emitter.Emit(event.Progress{
				RunID:     cfg.runID,
				Stage:     current,
				Status:    event.StatusFailed,
				Err:       stageErr.Error(),
				Timestamp: time.Now(),
			})
			return state, stageCount, stageErr
		}
		observability.LogStageComplete(cfg.logger, current, stageDurationMs)
		cfg.emitter.Emit(event.Progress{
			RunID:     cfg.runID,
			Stage:     current,
			Status:    event.StatusCompleted,
			Timestamp: time.Now(),
		})
		stageCount++

		// Determine next stage
		next, err := cg.nextStage(execCtx, state, current)
		if err != nil {
			return state, stageCount, err
		}

		current = next
	}

	return state, stageCount, nil
}

// executeStage executes a single stage with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeStage(ctx Context, stageID string, state S) (result S, err error) {
	fn, exists := cg.getStage(stageID)
	if !exists {
		// This shouldn't happen if compilation was successful
		return state, &StageError{
			StageID: stageID,
			Op:      "lookup",
			Err:     fmt.Errorf("stage not found: %s", stageID),
		}
	}

	// Create stage-specific context with enriched logger
	stageCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		stageCtx = ec.withStageID(stageID)
	}

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				StageID: stageID,
				Value:   r,
				Stack:   string(debug.Stack()),
			}
		}
	}()

	result, err = fn(stageCtx, state)
	if err != nil {
		return result, &StageError{
			StageID: stageID,
			Op:      "execute",
			Err:     err,
		}
	}

	return result, nil
}

// nextStage determines the next stage to execute.
// Checks conditional edges first, then simple edges.
func (cg *CompiledGraph[S]) nextStage(ctx Context, state S, current string) (string, error) {
	// Check for conditional edge first
	if router, exists := cg.getRouter(current); exists {
		// Create stage-specific context for the router
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withStageID(current)
		}

		next := router(routerCtx, state)

		// Validate router result
		if next == "" {
			return "", &RouterError{
				FromStage: current,
				Returned:  next,
				Err:       ErrInvalidRouterResult,
			}
		}

		if next != END {
			if _, exists := cg.getStage(next); !exists {
				return "", &RouterError{
					FromStage: current,
					Returned:  next,
					Err:       ErrRouterTargetNotFound,
				}
			}
		}

		return next, nil
	}

	// Use simple edges
	edges := cg.getEdges(current)
	if len(edges) == 0 {
		// No outgoing edges - this shouldn't happen if compilation was successful
		return "", &StageError{
			StageID: current,
			Op:      "routing",
			Err:     fmt.Errorf("no outgoing edge from stage %s", current),
		}
	}

	// For simple edges, take the first one
	return edges[0], nil
}
