// ABOUTME: Stage interface, execution outcome types, and the named stage registry.
// ABOUTME: Stages report failure through Outcome records instead of raising errors past their boundary.
package pipeline

import (
	"context"
	"fmt"
	"sort"
)

// OutcomeStatus is the per-stage local success/failure indicator returned
// alongside the state.
type OutcomeStatus string

const (
	OutcomeOK    OutcomeStatus = "ok"
	OutcomeError OutcomeStatus = "error"
)

// Outcome is the result of executing one stage. On failure the stage reports
// the categorized kind and a human-readable message; the engine records both
// into the state's error sequence. Output, when non-nil, is the artifact the
// engine records under OutputKey, or under the stage's own name when
// OutputKey is empty. A stage only ever names its own key; the engine writes
// one key per execution, so no stage can clobber another stage's artifact.
type Outcome struct {
	Status    OutcomeStatus
	Kind      ErrorKind
	Message   string
	Notes     string
	Output    any
	OutputKey string
}

// OK builds a success outcome carrying the stage's artifact.
func OK(output any) *Outcome {
	return &Outcome{Status: OutcomeOK, Output: output}
}

// OKWithKey builds a success outcome recording the artifact under an explicit
// output key.
func OKWithKey(key string, output any) *Outcome {
	return &Outcome{Status: OutcomeOK, Output: output, OutputKey: key}
}

// Errorf builds a failure outcome with a formatted diagnostic message.
func Errorf(kind ErrorKind, format string, args ...any) *Outcome {
	return &Outcome{Status: OutcomeError, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Stage is a unit of work in the pipeline graph. Execute reads and derives
// from the shared state and must not propagate an unhandled failure: internal
// errors are converted into an error Outcome. ctx carries cancellation from
// the caller through to collaborator calls.
type Stage interface {
	// Name returns the unique stage identifier used in graph wiring and
	// diagnostics.
	Name() string

	// Execute runs the stage's work against the current state.
	Execute(ctx context.Context, state *State) *Outcome
}

// StageFunc adapts a plain function into a Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, state *State) *Outcome
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Execute(ctx context.Context, state *State) *Outcome {
	return s.Fn(ctx, state)
}

// Registry maps stage names to stage instances. Built once at process start
// and shared read-only across concurrent pipeline invocations.
type Registry struct {
	stages map[string]Stage
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// Register adds a stage keyed by its Name(). Registering an already-known
// name replaces the previous stage.
func (r *Registry) Register(stage Stage) {
	r.stages[stage.Name()] = stage
}

// Get returns the stage registered under the given name, or nil.
func (r *Registry) Get(name string) Stage {
	return r.stages[name]
}

// Names returns all registered stage names in sorted order for deterministic
// validation output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.stages))
	for name := range r.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
