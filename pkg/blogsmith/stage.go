package blogsmith

// END is the terminal stage identifier.
// Use this as an edge target to indicate the pipeline should terminate.
const END = "__end__"

// StageFunc is the signature for all pipeline stages.
// Stages receive the execution context and current state,
// and return the updated state (or the same state) and any error.
//
// The state parameter is passed by value. Stages should modify and return
// a new state value, not rely on pointer mutation.
//
// Example:
//
//	func plan(ctx blogsmith.Context, s BlogState) (BlogState, error) {
//	    s.Plan = outline
//	    return s, nil
//	}
type StageFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc determines the next stage based on state.
// It is used for conditional edges where the next stage depends on runtime
// state, such as skipping research or image generation.
//
// The router should return a valid stage ID or blogsmith.END.
// Returning an empty string or an unknown stage ID will cause a runtime error.
//
// Example:
//
//	func afterInit(ctx blogsmith.Context, s BlogState) string {
//	    if s.ResearchEnabled {
//	        return "research"
//	    }
//	    return "plan"
//	}
type RouterFunc[S any] func(ctx Context, state S) string
