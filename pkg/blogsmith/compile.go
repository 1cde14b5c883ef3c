package blogsmith

import (
	"errors"
	"fmt"
	"log/slog"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing stage
//  3. All edge sources must reference existing stages
//  4. All edge targets must reference existing stages or END
//  5. All stages must have a path to END
//
// Unreachable stages (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// 1. Validate entry point is set
	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.stages[g.entryPoint]; !exists {
		// 2. Validate entry point references existing stage
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	// 3 & 4. Validate edge references
	for from, targets := range g.edges {
		// Check source exists (unless it only has conditional edges)
		if from != END {
			if _, exists := g.stages[from]; !exists {
				if _, hasConditional := g.conditionalEdges[from]; !hasConditional {
					errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrStageNotFound, from))
				}
			}
		}

		// Check all targets exist
		for _, to := range targets {
			if to != END {
				if _, exists := g.stages[to]; !exists {
					errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrStageNotFound, to))
				}
			}
		}
	}

	// Also check conditional edge sources
	for from := range g.conditionalEdges {
		if _, exists := g.stages[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrStageNotFound, from))
		}
	}

	// 5. Validate path to END exists from entry
	if g.entryPoint != "" {
		if _, exists := g.stages[g.entryPoint]; exists {
			if !g.hasPathToEnd() {
				errs = append(errs, ErrNoPathToEnd)
			}
		}
	}

	// Check for unreachable stages (warning only)
	g.warnUnreachableStages()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// hasPathToEnd checks if there's a path from entry to END.
// This uses a simple reachability analysis.
// Stages with conditional edges are assumed to potentially reach any of
// their possible targets, including END.
func (g *Graph[S]) hasPathToEnd() bool {
	// Find all stages that can reach END using reverse traversal
	canReachEnd := make(map[string]bool)
	canReachEnd[END] = true

	// Keep propagating until no changes
	changed := true
	for changed {
		changed = false

		// Check simple edges
		for from, targets := range g.edges {
			if canReachEnd[from] {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}

		// Conditional edges can reach END since the router might return it
		for from := range g.conditionalEdges {
			if !canReachEnd[from] {
				canReachEnd[from] = true
				changed = true
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

// warnUnreachableStages logs warnings for stages not reachable from entry.
func (g *Graph[S]) warnUnreachableStages() {
	if g.entryPoint == "" {
		return
	}

	reachable := g.findReachableStages()

	for stageID := range g.stages {
		if !reachable[stageID] {
			slog.Warn("stage is unreachable from entry", "stage", stageID)
		}
	}
}

// findReachableStages returns the set of stages reachable from the entry point.
func (g *Graph[S]) findReachableStages() map[string]bool {
	reachable := make(map[string]bool)

	if g.entryPoint == "" {
		return reachable
	}

	// BFS from entry
	queue := []string{g.entryPoint}
	reachable[g.entryPoint] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		// Follow simple edges
		for _, target := range g.edges[current] {
			if target != END && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}

		// For conditional edges, the actual targets depend on runtime state.
		// The router function could potentially return any stage ID, so we
		// must assume ALL stages are reachable.
		if _, hasConditional := g.conditionalEdges[current]; hasConditional {
			for stageID := range g.stages {
				if !reachable[stageID] {
					reachable[stageID] = true
					queue = append(queue, stageID)
				}
			}
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	stages := make(map[string]StageFunc[S], len(g.stages))
	for id, fn := range g.stages {
		stages[id] = fn
	}

	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = make([]string, len(targets))
		copy(edges[from], targets)
	}

	conditionalEdges := make(map[string]RouterFunc[S], len(g.conditionalEdges))
	for from, router := range g.conditionalEdges {
		conditionalEdges[from] = router
	}

	// Pre-compute predecessors
	predecessors := make(map[string][]string)
	for from, targets := range edges {
		for _, to := range targets {
			if to != END {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}

	isConditional := make(map[string]bool)
	for from := range conditionalEdges {
		isConditional[from] = true
	}

	return &CompiledGraph[S]{
		stages:           stages,
		edges:            edges,
		conditionalEdges: conditionalEdges,
		entryPoint:       g.entryPoint,
		predecessors:     predecessors,
		isConditional:    isConditional,
	}
}
