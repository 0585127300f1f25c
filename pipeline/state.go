// ABOUTME: Mutable pipeline state threaded through every stage of a single run.
// ABOUTME: Accumulates stage outputs and error records under append-only discipline with guarded status transitions.
package pipeline

import (
	"sync"
)

// Status is the lifecycle phase of a pipeline run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// State is the single mutable record owned by one pipeline invocation. The
// engine owns it for the duration of a run; callers receive a read-only
// FinalState at termination. All mutation goes through methods so the
// append-only discipline on outputs and errors holds.
type State struct {
	rawInput    string
	outputs     map[string]any
	outputOrder []string
	errors      []StageError
	status      Status
	stepCount   int
	mu          sync.RWMutex
}

// NewState creates a running State for the given raw natural-language input.
func NewState(rawInput string) *State {
	return &State{
		rawInput: rawInput,
		outputs:  make(map[string]any),
		status:   StatusRunning,
	}
}

// RawInput returns the original natural-language text. Immutable after creation.
func (s *State) RawInput() string {
	return s.rawInput
}

// Output returns the artifact recorded for the given stage name.
func (s *State) Output(stage string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.outputs[stage]
	return v, ok
}

// OutputString returns the stage's artifact as a string, or defaultVal when
// the stage has not run or produced a non-string artifact.
func (s *State) OutputString(stage, defaultVal string) string {
	v, ok := s.Output(stage)
	if !ok {
		return defaultVal
	}
	str, ok := v.(string)
	if !ok {
		return defaultVal
	}
	return str
}

// setOutput records a stage's artifact. Keys are added, never removed;
// insertion order reflects execution order. Only the engine calls this, once
// per stage execution, so no stage can write another stage's key.
func (s *State) setOutput(stage string, artifact any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.outputs[stage]; !exists {
		s.outputOrder = append(s.outputOrder, stage)
	}
	s.outputs[stage] = artifact
}

// appendError adds a diagnostic record to the error sequence.
func (s *State) appendError(stage string, kind ErrorKind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, StageError{Stage: stage, Kind: kind, Message: message})
}

// Errors returns a copy of the accumulated error records in append order.
func (s *State) Errors() []StageError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StageError, len(s.errors))
	copy(out, s.errors)
	return out
}

// Status returns the current lifecycle status.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// markSucceeded transitions running -> succeeded. A terminal status never reverts.
func (s *State) markSucceeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		s.status = StatusSucceeded
	}
}

// markFailed transitions running -> failed. A terminal status never reverts.
func (s *State) markFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		s.status = StatusFailed
	}
}

// StepCount returns the number of stage executions so far.
func (s *State) StepCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stepCount
}

// incrementStep bumps the step counter. Called once per stage execution.
func (s *State) incrementStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepCount++
}

// FinalState is the read-only view of a completed run handed back to callers.
type FinalState struct {
	RawInput   string         `json:"raw_input"`
	Status     Status         `json:"status"`
	StepCount  int            `json:"step_count"`
	Outputs    map[string]any `json:"stage_outputs"`
	StageOrder []string       `json:"stage_order"`
	Errors     []StageError   `json:"errors"`
}

// Final snapshots the state into an immutable FinalState.
func (s *State) Final() *FinalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outputs := make(map[string]any, len(s.outputs))
	for k, v := range s.outputs {
		outputs[k] = v
	}
	order := make([]string, len(s.outputOrder))
	copy(order, s.outputOrder)
	errs := make([]StageError, len(s.errors))
	copy(errs, s.errors)
	return &FinalState{
		RawInput:   s.rawInput,
		Status:     s.status,
		StepCount:  s.stepCount,
		Outputs:    outputs,
		StageOrder: order,
		Errors:     errs,
	}
}

// Output returns the artifact recorded for the given stage name.
func (f *FinalState) Output(stage string) (any, bool) {
	v, ok := f.Outputs[stage]
	return v, ok
}
