// ABOUTME: Pipeline execution engine driving stage execution over the validated graph.
// ABOUTME: Enforces the step-limit guard, records per-stage diagnostics, and emits lifecycle events.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// EventType identifies the kind of engine lifecycle event.
type EventType string

const (
	EventPipelineStarted   EventType = "pipeline.started"
	EventPipelineCompleted EventType = "pipeline.completed"
	EventPipelineFailed    EventType = "pipeline.failed"
	EventStageStarted      EventType = "stage.started"
	EventStageCompleted    EventType = "stage.completed"
	EventStageFailed       EventType = "stage.failed"
)

// Event is a lifecycle event emitted by the engine during a run.
type Event struct {
	Type      EventType
	Stage     string
	Data      map[string]any
	Timestamp time.Time
}

// DefaultMaxSteps bounds stage executions per run when Config.MaxSteps is
// unset. Generous relative to the seven-stage agent graph; its job is to stop
// runaway cycles from a misconfigured graph, not to pace normal runs.
const DefaultMaxSteps = 64

// Config holds engine construction parameters. All values are read at
// construction time, never mid-run.
type Config struct {
	MaxSteps     int         // runaway-loop guard (0 = DefaultMaxSteps)
	EventHandler func(Event) // optional lifecycle event callback
}

// Engine executes pipeline runs over an immutable graph. One Engine serves
// any number of concurrent invocations; each run owns its own State and the
// engine keeps no per-run fields.
type Engine struct {
	graph    *Graph
	router   *Router
	maxSteps int
	events   func(Event)
}

// NewEngine validates the graph and builds an engine over it.
func NewEngine(graph *Graph, cfg Config) (*Engine, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Engine{
		graph:    graph,
		router:   NewRouter(graph),
		maxSteps: maxSteps,
		events:   cfg.EventHandler,
	}, nil
}

// Run executes the pipeline for one raw input and returns the final state.
// Exactly one stage executes per loop iteration; the returned StepCount
// equals the number of stage executions. Run never returns an error: every
// failure mode ends as a failed FinalState carrying diagnostics.
func (e *Engine) Run(ctx context.Context, rawInput string) *FinalState {
	state := NewState(rawInput)
	current := e.graph.Start

	e.emit(Event{Type: EventPipelineStarted})

	for state.Status() == StatusRunning {
		select {
		case <-ctx.Done():
			state.appendError(current, KindInternal, fmt.Sprintf("run cancelled before stage %q: %v", current, ctx.Err()))
			state.markFailed()
			continue
		default:
		}

		if state.StepCount() >= e.maxSteps {
			state.appendError(current, KindStepLimit, fmt.Sprintf("step limit of %d exceeded, possible routing cycle", e.maxSteps))
			state.markFailed()
			continue
		}

		stage := e.graph.Stages.Get(current)
		if stage == nil {
			// Validation rules this out for declared edges; guards against a
			// registry mutated after construction.
			state.appendError(current, KindRouting, fmt.Sprintf("stage %q not registered", current))
			state.markFailed()
			continue
		}

		e.emit(Event{Type: EventStageStarted, Stage: current})

		outcome := safeExecute(ctx, stage, state)
		state.incrementStep()

		if outcome.Status == OutcomeError {
			state.appendError(current, outcome.Kind, outcome.Message)
			e.emit(Event{Type: EventStageFailed, Stage: current, Data: map[string]any{
				"kind":   string(outcome.Kind),
				"reason": outcome.Message,
			}})
		} else {
			if outcome.Output != nil {
				key := outcome.OutputKey
				if key == "" {
					key = current
				}
				state.setOutput(key, outcome.Output)
			}
			e.emit(Event{Type: EventStageCompleted, Stage: current})
		}

		next, err := e.router.Route(current, state, outcome)
		if err != nil {
			state.appendError(current, KindRouting, err.Error())
			state.markFailed()
			continue
		}

		switch next {
		case StageSuccess:
			state.markSucceeded()
		case StageFailure:
			state.markFailed()
		default:
			current = next
		}
	}

	final := state.Final()
	if final.Status == StatusSucceeded {
		e.emit(Event{Type: EventPipelineCompleted, Data: map[string]any{"steps": final.StepCount}})
	} else {
		data := map[string]any{"steps": final.StepCount}
		if len(final.Errors) > 0 {
			data["reason"] = final.Errors[len(final.Errors)-1].Message
		}
		e.emit(Event{Type: EventPipelineFailed, Data: data})
	}
	return final
}

// Graph returns the engine's immutable graph, for introspection and rendering.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// safeExecute wraps stage.Execute with panic recovery so a misbehaving stage
// cannot crash the engine. A recovered panic becomes an internal error
// outcome; the stack trace rides along in the message to aid debugging.
func safeExecute(ctx context.Context, stage Stage, state *State) (outcome *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Errorf(KindInternal, "panic in stage %q: %v\n%s", stage.Name(), r, debug.Stack())
		}
	}()
	outcome = stage.Execute(ctx, state)
	if outcome == nil {
		outcome = Errorf(KindInternal, "stage %q returned nil outcome", stage.Name())
	}
	return outcome
}

// emit sends an event to the configured handler, stamping the current time.
func (e *Engine) emit(evt Event) {
	if e.events == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	e.events(evt)
}
