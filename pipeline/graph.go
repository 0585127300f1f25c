// ABOUTME: Directed stage graph with unconditional, conditional, and error edges.
// ABOUTME: Validated once at construction time and shared read-only across all pipeline invocations.
package pipeline

import (
	"fmt"
)

// Terminal pseudo-stage names. Routing to one of these ends the run and sets
// the final status; no stage executes for them.
const (
	StageSuccess = "SUCCESS"
	StageFailure = "FAILURE"
)

// Predicate inspects the current state after a stage completes and decides
// whether a conditional edge applies. Predicates must be pure functions of
// the state.
type Predicate func(state *State) bool

// Edge is a directed transition between stages. Exactly one form applies:
//   - OnError: taken when the source stage reported an error outcome.
//   - When non-nil: conditional, evaluated in declaration order after a
//     successful outcome; the first matching predicate wins.
//   - Neither: the unconditional default edge.
type Edge struct {
	From    string
	To      string
	When    Predicate
	OnError bool
	Label   string
}

// Graph wires named stages into a directed graph with a distinguished start
// stage. Construct it once, call Validate, then share it read-only.
type Graph struct {
	Start  string
	Stages *Registry
	Edges  []Edge
}

// NewGraph creates a graph over the given registry, starting at the named stage.
func NewGraph(start string, stages *Registry) *Graph {
	return &Graph{Start: start, Stages: stages}
}

// AddEdge appends an unconditional edge.
func (g *Graph) AddEdge(from, to string) {
	g.Edges = append(g.Edges, Edge{From: from, To: to})
}

// AddConditionalEdge appends a conditional edge evaluated in declaration order.
func (g *Graph) AddConditionalEdge(from, to, label string, when Predicate) {
	g.Edges = append(g.Edges, Edge{From: from, To: to, When: when, Label: label})
}

// AddErrorEdge appends the edge taken when the source stage fails.
func (g *Graph) AddErrorEdge(from, to string) {
	g.Edges = append(g.Edges, Edge{From: from, To: to, OnError: true})
}

// OutgoingEdges returns the edges leaving the given stage in declaration order.
func (g *Graph) OutgoingEdges(from string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == from {
			out = append(out, e)
		}
	}
	return out
}

// isTerminal reports whether name is one of the terminal pseudo-stages.
func isTerminal(name string) bool {
	return name == StageSuccess || name == StageFailure
}

// Validate checks the graph's structural invariants:
//   - the start stage exists in the registry,
//   - every edge endpoint is a registered stage or a terminal pseudo-stage,
//   - no edge originates from a terminal pseudo-stage,
//   - at most one error edge and one unconditional edge per stage,
//   - every stage with conditional edges also has an unconditional or error
//     edge, so routing is a total function over reachable states.
func (g *Graph) Validate() error {
	if g.Stages == nil {
		return &GraphError{Reason: "no stage registry"}
	}
	if g.Start == "" {
		return &GraphError{Reason: "no start stage"}
	}
	if g.Stages.Get(g.Start) == nil {
		return &GraphError{Stage: g.Start, Reason: "start stage not registered"}
	}

	for _, e := range g.Edges {
		if isTerminal(e.From) {
			return &GraphError{Stage: e.From, Reason: "edge originates from terminal pseudo-stage"}
		}
		if g.Stages.Get(e.From) == nil {
			return &GraphError{Stage: e.From, Reason: "edge source not registered"}
		}
		if !isTerminal(e.To) && g.Stages.Get(e.To) == nil {
			return &GraphError{Stage: e.From, Reason: fmt.Sprintf("edge destination %q not registered", e.To)}
		}
		if e.OnError && e.When != nil {
			return &GraphError{Stage: e.From, Reason: "edge cannot be both conditional and error"}
		}
	}

	for _, name := range g.Stages.Names() {
		edges := g.OutgoingEdges(name)
		errorEdges := 0
		defaultEdges := 0
		conditional := 0
		for _, e := range edges {
			switch {
			case e.OnError:
				errorEdges++
			case e.When != nil:
				conditional++
			default:
				defaultEdges++
			}
		}
		if errorEdges > 1 {
			return &GraphError{Stage: name, Reason: "multiple error edges"}
		}
		if defaultEdges > 1 {
			return &GraphError{Stage: name, Reason: "multiple unconditional edges"}
		}
		if conditional > 0 && defaultEdges == 0 && errorEdges == 0 {
			return &GraphError{Stage: name, Reason: "conditional edges without a default or error edge"}
		}
	}

	return nil
}
