// ABOUTME: Error taxonomy for pipeline stage failures and engine-level faults.
// ABOUTME: Defines ErrorKind categories and the StageError diagnostic record accumulated in state.
package pipeline

import (
	"fmt"
)

// ErrorKind categorizes a stage or engine failure so callers can tell a bad
// input apart from a collaborator outage or a misconfigured graph.
type ErrorKind string

const (
	// KindValidation marks malformed or empty input detected by a stage.
	KindValidation ErrorKind = "validation"
	// KindCollaborator marks a failed or timed-out external call (language
	// model, payload submission).
	KindCollaborator ErrorKind = "collaborator"
	// KindRouting marks an unroutable state. Unreachable for graphs that
	// passed construction-time validation.
	KindRouting ErrorKind = "routing"
	// KindStepLimit marks the runaway-graph guard tripping.
	KindStepLimit ErrorKind = "step_limit"
	// KindInternal marks recovered panics and cancelled runs.
	KindInternal ErrorKind = "internal"
)

// StageError is one diagnostic record in the state's error sequence. The
// sequence is append-only; records survive the engine continuing past a
// recoverable failure.
type StageError struct {
	Stage   string    `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e StageError) Error() string {
	return fmt.Sprintf("stage %q: %s: %s", e.Stage, e.Kind, e.Message)
}

// GraphError reports a structural problem found while validating a graph at
// construction time.
type GraphError struct {
	Stage  string
	Reason string
}

func (e *GraphError) Error() string {
	if e.Stage == "" {
		return "graph: " + e.Reason
	}
	return fmt.Sprintf("graph: stage %q: %s", e.Stage, e.Reason)
}
