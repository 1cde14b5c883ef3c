package blogsmith

// CompiledGraph is the immutable, executable form of a pipeline produced
// by Graph.Compile. One compiled pipeline serves any number of concurrent
// Run calls; nothing in it changes after compilation.
//
// The introspection methods (StageIDs, Successors, Predecessors) exist for
// debugging and for rendering a pipeline's shape, not for execution.
type CompiledGraph[S any] struct {
	stages           map[string]StageFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string

	// Pre-computed at compile time
	predecessors  map[string][]string
	isConditional map[string]bool
}

// EntryPoint returns the ID of the first stage to run.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// StageIDs returns every stage ID in the pipeline, in no particular order.
func (cg *CompiledGraph[S]) StageIDs() []string {
	ids := make([]string, 0, len(cg.stages))
	for id := range cg.stages {
		ids = append(ids, id)
	}
	return ids
}

// HasStage reports whether the pipeline contains the given stage.
func (cg *CompiledGraph[S]) HasStage(id string) bool {
	_, exists := cg.stages[id]
	return exists
}

// Successors returns the stages reachable from id over plain edges.
// Conditional targets are runtime decisions and are not included; END and
// unknown stages yield nil.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return cg.edges[id]
}

// Predecessors returns the stages with an edge into id. Nil for the entry
// stage and for unknown stages.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional reports whether id routes through a RouterFunc.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	return cg.isConditional[id]
}

// Executor-side lookups.

func (cg *CompiledGraph[S]) getStage(id string) (StageFunc[S], bool) {
	fn, exists := cg.stages[id]
	return fn, exists
}

func (cg *CompiledGraph[S]) getRouter(id string) (RouterFunc[S], bool) {
	router, exists := cg.conditionalEdges[id]
	return router, exists
}

func (cg *CompiledGraph[S]) getEdges(id string) []string {
	return cg.edges[id]
}
