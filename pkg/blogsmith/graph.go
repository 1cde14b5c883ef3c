package blogsmith

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for a pipeline. Chain AddStage, AddEdge,
// AddConditionalEdge, and SetEntry, then Compile into an immutable
// CompiledGraph that can run concurrently.
//
// Building is single-goroutine work; only the compiled form is shared.
//
// Example:
//
//	graph := blogsmith.NewGraph[BlogState]().
//	    AddStage("plan", planStage).
//	    AddStage("write", writeStage).
//	    AddEdge("plan", "write").
//	    AddEdge("write", blogsmith.END).
//	    SetEntry("plan")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	stages           map[string]StageFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string
}

// NewGraph creates an empty builder for pipelines over state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		stages:           make(map[string]StageFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
	}
}

// AddStage registers a named stage. Malformed registrations are programmer
// errors and panic immediately: empty IDs, the reserved END name, IDs with
// whitespace, nil functions, and duplicates.
func (g *Graph[S]) AddStage(id string, fn StageFunc[S]) *Graph[S] {
	if id == "" {
		panic("blogsmith: stage ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("blogsmith: stage ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("blogsmith: stage ID cannot contain whitespace")
	}

	if fn == nil {
		panic("blogsmith: stage function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.stages[id]; exists {
		panic(fmt.Sprintf("blogsmith: duplicate stage ID: %s", id))
	}

	g.stages[id] = fn
	return g
}

// AddEdge wires an unconditional transition from one stage to another.
// The target can be a stage ID or blogsmith.END. Whether the endpoints
// actually exist is checked at Compile time, so edges can be added in any
// order relative to their stages.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge wires a router that picks the next stage from state
// at runtime, e.g. skipping research when it is disabled or jumping
// straight to assembly when no images are planned. The router must return
// an existing stage ID or blogsmith.END; anything else is a RouterError
// at run time.
//
// A conditional edge takes precedence over plain edges from the same
// stage.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("blogsmith: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntry designates the first stage of the pipeline. Validated at
// Compile time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
