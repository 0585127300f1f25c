// ABOUTME: Routing algorithm that resolves the next stage after each stage execution.
// ABOUTME: Resolution order: error edge on failure, conditional edges in declaration order, unconditional edge, implicit terminal.
package pipeline

import (
	"fmt"
)

// Router resolves the next stage name from the current stage, the updated
// state, and the stage's outcome. Given a fixed state and outcome, Route
// always returns the same destination: ties between conditional edges break
// on declaration order, with no hidden randomness.
type Router struct {
	graph *Graph
}

// NewRouter creates a router over a validated graph.
func NewRouter(graph *Graph) *Router {
	return &Router{graph: graph}
}

// Route selects the destination for the transition out of current.
//
// On an error outcome the error edge wins when one is declared; otherwise
// conditional edges may still match (they see the updated state, including
// the recorded error), and an unmatched error falls through to FAILURE.
// Unconditional edges are only followed on success: a failed stage never
// silently continues down the happy path.
//
// A successful stage with no outgoing edges reaches the implicit terminal for
// its outcome. A successful stage whose conditional edges all mismatch with
// no default declared is a configuration bug and yields a routing error;
// graph validation makes this unreachable.
func (r *Router) Route(current string, state *State, outcome *Outcome) (string, error) {
	edges := r.graph.OutgoingEdges(current)

	if outcome.Status == OutcomeError {
		for _, e := range edges {
			if e.OnError {
				return e.To, nil
			}
		}
	}

	for _, e := range edges {
		if e.When != nil && !e.OnError && e.When(state) {
			return e.To, nil
		}
	}

	if outcome.Status == OutcomeError {
		// Failure with no error edge: halt the run with the stage's error
		// already recorded in state.
		return StageFailure, nil
	}

	for _, e := range edges {
		if e.When == nil && !e.OnError {
			return e.To, nil
		}
	}

	if len(edges) == 0 {
		return StageSuccess, nil
	}

	return "", fmt.Errorf("no edge matched leaving stage %q", current)
}
