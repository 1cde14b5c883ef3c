/*
Package blogsmith provides the typed pipeline engine behind the blog
generation workflow.

# Overview

blogsmith executes directed graphs where stages perform work and edges
define flow. State is a plain Go value threaded through the stages; each
stage receives the current state and returns an updated copy. The engine
handles cancellation, panic containment, conditional routing, structured
logging, and OpenTelemetry metrics and tracing.

The concrete blog pipeline (research, planning, section writing, image
generation, assembly) lives in the workflow subpackage and is built on
this engine.

# Basic Usage

Create a graph with stages and edges, then compile and run:

	type State struct {
	    Input  string
	    Output string
	}

	func process(ctx blogsmith.Context, s State) (State, error) {
	    s.Output = "Processed: " + s.Input
	    return s, nil
	}

	func main() {
	    graph := blogsmith.NewGraph[State]().
	        AddStage("process", process).
	        AddEdge("process", blogsmith.END).
	        SetEntry("process")

	    compiled, err := graph.Compile()
	    if err != nil {
	        log.Fatal(err)
	    }

	    ctx := blogsmith.NewContext(context.Background())
	    result, err := compiled.Run(ctx, State{Input: "hello"})
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(result.Output) // "Processed: hello"
	}

# Conditional Branching

Use conditional edges for decision points such as skipping optional
stages:

	graph.AddConditionalEdge("init", func(ctx blogsmith.Context, s State) string {
	    if s.ResearchEnabled {
	        return "research"
	    }
	    return "plan"
	})

The router function returns the ID of the next stage to execute.
Invalid return values (referencing non-existent stages) cause runtime
errors.

# Fan-Out

When a stage needs to run many tasks concurrently, such as writing one
section per outline entry, use Collect inside the stage:

	results := blogsmith.Collect(ctx, sections, 4,
	    func(ctx context.Context, i int, sec SectionSpec) (string, error) {
	        return writeSection(ctx, sec)
	    })

Results come back in input order with per-task error isolation, so one
failed task never discards its siblings' work. The stage merges
successful results into state on the coordinating goroutine; no locks
are needed.

# Error Handling

Run returns typed errors that preserve the state at the point of
failure: StageError, PanicError, CancellationError, RouterError, and
MaxIterationsError. Use errors.As to inspect them:

	result, err := compiled.Run(ctx, state)
	var stageErr *blogsmith.StageError
	if errors.As(err, &stageErr) {
	    log.Printf("stage %s failed: %v", stageErr.StageID, stageErr.Err)
	}

# Observability

Runs log through slog, record OTel metrics, and optionally create spans
per run and per stage. Progress events (started, completed, failed) are
published through an injected event.Emitter:

	bus := event.NewBus(event.DefaultBuffer)
	result, err := compiled.Run(ctx, state,
	    blogsmith.WithEmitter(bus),
	    blogsmith.WithMetrics(observability.NewMetricsRecorder()),
	    blogsmith.WithTracing(observability.NewSpanManager()))
*/
package blogsmith
