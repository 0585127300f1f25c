// ABOUTME: Tests for the pipeline execution engine covering the full run lifecycle.
// ABOUTME: Covers linear runs, error routing, step limits, panic recovery, cancellation, and events.
package pipeline

import (
	"context"
	"strings"
	"testing"
)

// --- Test stage implementation ---

// testStage is a configurable Stage that returns preset outcomes.
type testStage struct {
	name      string
	executeFn func(ctx context.Context, state *State) *Outcome
	callCount int
}

func (s *testStage) Name() string { return s.name }

func (s *testStage) Execute(ctx context.Context, state *State) *Outcome {
	s.callCount++
	if s.executeFn != nil {
		return s.executeFn(ctx, state)
	}
	return OK(nil)
}

// newOutputStage returns a stage that records the given artifact under key.
func newOutputStage(name, key string, artifact any) *testStage {
	return &testStage{
		name: name,
		executeFn: func(ctx context.Context, state *State) *Outcome {
			return OKWithKey(key, artifact)
		},
	}
}

// newFailingStage returns a stage that always reports the given error.
func newFailingStage(name string, kind ErrorKind, message string) *testStage {
	return &testStage{
		name: name,
		executeFn: func(ctx context.Context, state *State) *Outcome {
			return Errorf(kind, "%s", message)
		},
	}
}

func buildRegistry(stages ...Stage) *Registry {
	r := NewRegistry()
	for _, s := range stages {
		r.Register(s)
	}
	return r
}

func mustEngine(t *testing.T, graph *Graph, cfg Config) *Engine {
	t.Helper()
	engine, err := NewEngine(graph, cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

// --- Tests ---

func TestRunLinearPipelineSucceeds(t *testing.T) {
	parse := newOutputStage("parse", "tables", []string{"sales", "products"})
	build := newOutputStage("build", "payload", map[string]any{"query_template": "SELECT 1"})

	graph := NewGraph("parse", buildRegistry(parse, build))
	graph.AddEdge("parse", "build")
	graph.AddEdge("build", StageSuccess)

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(context.Background(), "total sales by product")

	if final.Status != StatusSucceeded {
		t.Fatalf("status = %s, want %s", final.Status, StatusSucceeded)
	}
	if len(final.Errors) != 0 {
		t.Errorf("errors = %v, want none", final.Errors)
	}
	if final.StepCount != 2 {
		t.Errorf("step count = %d, want 2", final.StepCount)
	}
	if parse.callCount != 1 || build.callCount != 1 {
		t.Errorf("call counts = %d, %d, want 1, 1", parse.callCount, build.callCount)
	}

	tables, ok := final.Output("tables")
	if !ok {
		t.Fatal("missing tables output")
	}
	if got := tables.([]string); len(got) != 2 || got[0] != "sales" || got[1] != "products" {
		t.Errorf("tables = %v, want [sales products]", got)
	}
	payload, ok := final.Output("payload")
	if !ok {
		t.Fatal("missing payload output")
	}
	if payload.(map[string]any)["query_template"] == nil {
		t.Error("payload query_template is nil")
	}

	if len(final.StageOrder) != 2 || final.StageOrder[0] != "tables" || final.StageOrder[1] != "payload" {
		t.Errorf("stage order = %v, want [tables payload]", final.StageOrder)
	}
}

func TestRunEmptyInputFailsWithOneValidationError(t *testing.T) {
	parse := &testStage{
		name: "parse",
		executeFn: func(ctx context.Context, state *State) *Outcome {
			if strings.TrimSpace(state.RawInput()) == "" {
				return Errorf(KindValidation, "query is empty")
			}
			return OK(nil)
		},
	}
	next := &testStage{name: "next"}

	graph := NewGraph("parse", buildRegistry(parse, next))
	graph.AddEdge("parse", "next")

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(context.Background(), "")

	if final.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", final.Status, StatusFailed)
	}
	if len(final.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", final.Errors)
	}
	if final.Errors[0].Stage != "parse" {
		t.Errorf("error stage = %q, want parse", final.Errors[0].Stage)
	}
	if final.Errors[0].Kind != KindValidation {
		t.Errorf("error kind = %q, want %q", final.Errors[0].Kind, KindValidation)
	}
	if next.callCount != 0 {
		t.Errorf("next stage ran %d times after failure, want 0", next.callCount)
	}
}

func TestRunErrorEdgeRoutesToHandler(t *testing.T) {
	failing := newFailingStage("work", KindCollaborator, "backend unavailable")
	handler := newOutputStage("handler", "error_report", "diagnosed")

	graph := NewGraph("work", buildRegistry(failing, handler))
	graph.AddEdge("work", StageSuccess)
	graph.AddErrorEdge("work", "handler")
	graph.AddEdge("handler", StageFailure)

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(context.Background(), "query")

	if final.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", final.Status, StatusFailed)
	}
	if handler.callCount != 1 {
		t.Errorf("handler ran %d times, want 1", handler.callCount)
	}
	if len(final.Errors) != 1 || final.Errors[0].Stage != "work" {
		t.Errorf("errors = %v, want one record for work", final.Errors)
	}
	if _, ok := final.Output("error_report"); !ok {
		t.Error("handler output not recorded")
	}
	if final.StepCount != 2 {
		t.Errorf("step count = %d, want 2", final.StepCount)
	}
}

func TestRunFailedStageNeverFollowsHappyPath(t *testing.T) {
	failing := newFailingStage("work", KindCollaborator, "boom")
	next := &testStage{name: "next"}

	graph := NewGraph("work", buildRegistry(failing, next))
	graph.AddEdge("work", "next")

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(context.Background(), "query")

	if final.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", final.Status, StatusFailed)
	}
	if next.callCount != 0 {
		t.Errorf("next stage ran %d times after upstream failure, want 0", next.callCount)
	}
}

func TestRunConditionalRouting(t *testing.T) {
	classify := newOutputStage("classify", "mode", "fast")
	fast := newOutputStage("fast", "result", "fast path")
	slow := newOutputStage("slow", "result", "slow path")

	graph := NewGraph("classify", buildRegistry(classify, fast, slow))
	graph.AddConditionalEdge("classify", "fast", "mode=fast", func(state *State) bool {
		return state.OutputString("mode", "") == "fast"
	})
	graph.AddEdge("classify", "slow")

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(context.Background(), "query")

	if final.Status != StatusSucceeded {
		t.Fatalf("status = %s, want %s", final.Status, StatusSucceeded)
	}
	if fast.callCount != 1 {
		t.Errorf("fast ran %d times, want 1", fast.callCount)
	}
	if slow.callCount != 0 {
		t.Errorf("slow ran %d times, want 0", slow.callCount)
	}
	if got, _ := final.Output("result"); got != "fast path" {
		t.Errorf("result = %v, want fast path", got)
	}
}

func TestRunStepLimitHaltsCycle(t *testing.T) {
	a := &testStage{name: "a"}
	b := &testStage{name: "b"}

	graph := NewGraph("a", buildRegistry(a, b))
	graph.AddEdge("a", "b")
	graph.AddEdge("b", "a")

	engine := mustEngine(t, graph, Config{MaxSteps: 5})
	final := engine.Run(context.Background(), "query")

	if final.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", final.Status, StatusFailed)
	}
	if final.StepCount != 5 {
		t.Errorf("step count = %d, want 5", final.StepCount)
	}
	if len(final.Errors) != 1 || final.Errors[0].Kind != KindStepLimit {
		t.Fatalf("errors = %v, want one step_limit record", final.Errors)
	}
}

func TestRunDefaultStepLimit(t *testing.T) {
	a := &testStage{name: "a"}
	graph := NewGraph("a", buildRegistry(a))
	graph.AddEdge("a", "a")

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(context.Background(), "query")

	if final.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", final.Status, StatusFailed)
	}
	if final.StepCount != DefaultMaxSteps {
		t.Errorf("step count = %d, want %d", final.StepCount, DefaultMaxSteps)
	}
}

func TestRunRecoversPanickingStage(t *testing.T) {
	panicking := &testStage{
		name: "boom",
		executeFn: func(ctx context.Context, state *State) *Outcome {
			panic("stage exploded")
		},
	}

	graph := NewGraph("boom", buildRegistry(panicking))

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(context.Background(), "query")

	if final.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", final.Status, StatusFailed)
	}
	if len(final.Errors) != 1 {
		t.Fatalf("errors = %v, want one record", final.Errors)
	}
	if final.Errors[0].Kind != KindInternal {
		t.Errorf("error kind = %q, want %q", final.Errors[0].Kind, KindInternal)
	}
	if !strings.Contains(final.Errors[0].Message, "stage exploded") {
		t.Errorf("error message %q does not mention the panic value", final.Errors[0].Message)
	}
}

func TestRunNilOutcomeBecomesInternalError(t *testing.T) {
	bad := &testStage{
		name: "bad",
		executeFn: func(ctx context.Context, state *State) *Outcome {
			return nil
		},
	}

	graph := NewGraph("bad", buildRegistry(bad))

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(context.Background(), "query")

	if final.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", final.Status, StatusFailed)
	}
	if len(final.Errors) != 1 || final.Errors[0].Kind != KindInternal {
		t.Fatalf("errors = %v, want one internal record", final.Errors)
	}
}

func TestRunCancelledContextFailsRun(t *testing.T) {
	stage := &testStage{name: "work"}
	graph := NewGraph("work", buildRegistry(stage))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(ctx, "query")

	if final.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", final.Status, StatusFailed)
	}
	if stage.callCount != 0 {
		t.Errorf("stage ran %d times under cancelled context, want 0", stage.callCount)
	}
	if len(final.Errors) != 1 || final.Errors[0].Kind != KindInternal {
		t.Fatalf("errors = %v, want one internal record", final.Errors)
	}
}

func TestRunOutputKeyDefaultsToStageName(t *testing.T) {
	stage := &testStage{
		name: "summarize",
		executeFn: func(ctx context.Context, state *State) *Outcome {
			return OK("artifact")
		},
	}
	graph := NewGraph("summarize", buildRegistry(stage))

	engine := mustEngine(t, graph, Config{})
	final := engine.Run(context.Background(), "query")

	if got, ok := final.Output("summarize"); !ok || got != "artifact" {
		t.Errorf("output under stage name = %v, %v; want artifact, true", got, ok)
	}
}

func TestRunEmitsLifecycleEvents(t *testing.T) {
	stage := newOutputStage("work", "result", "done")
	graph := NewGraph("work", buildRegistry(stage))

	var events []Event
	engine := mustEngine(t, graph, Config{EventHandler: func(evt Event) {
		events = append(events, evt)
	}})
	engine.Run(context.Background(), "query")

	want := []EventType{EventPipelineStarted, EventStageStarted, EventStageCompleted, EventPipelineCompleted}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(events), len(want), events)
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Errorf("event[%d] = %s, want %s", i, events[i].Type, typ)
		}
	}
	if events[1].Stage != "work" {
		t.Errorf("stage event names %q, want work", events[1].Stage)
	}
}

func TestRunEmitsFailureEventWithReason(t *testing.T) {
	failing := newFailingStage("work", KindCollaborator, "backend unavailable")
	graph := NewGraph("work", buildRegistry(failing))

	var last Event
	engine := mustEngine(t, graph, Config{EventHandler: func(evt Event) {
		last = evt
	}})
	engine.Run(context.Background(), "query")

	if last.Type != EventPipelineFailed {
		t.Fatalf("last event = %s, want %s", last.Type, EventPipelineFailed)
	}
	if last.Data["reason"] != "backend unavailable" {
		t.Errorf("failure reason = %v, want backend unavailable", last.Data["reason"])
	}
}

func TestNewEngineRejectsInvalidGraph(t *testing.T) {
	graph := NewGraph("missing", NewRegistry())
	if _, err := NewEngine(graph, Config{}); err == nil {
		t.Fatal("expected error for unregistered start stage")
	}
}

func TestRunRepeatedInputProducesIdenticalFinals(t *testing.T) {
	parse := newOutputStage("parse", "tables", []string{"sales"})
	build := newOutputStage("build", "payload", map[string]any{"query_template": "SELECT 1"})

	graph := NewGraph("parse", buildRegistry(parse, build))
	graph.AddEdge("parse", "build")
	graph.AddEdge("build", StageSuccess)

	engine := mustEngine(t, graph, Config{})
	first := engine.Run(context.Background(), "total sales")
	second := engine.Run(context.Background(), "total sales")

	if first.Status != second.Status {
		t.Errorf("status = %s then %s, want identical", first.Status, second.Status)
	}
	if first.StepCount != second.StepCount {
		t.Errorf("step count = %d then %d, want identical", first.StepCount, second.StepCount)
	}
	if len(first.StageOrder) != len(second.StageOrder) {
		t.Fatalf("stage order = %v then %v, want identical", first.StageOrder, second.StageOrder)
	}
	for i := range first.StageOrder {
		if first.StageOrder[i] != second.StageOrder[i] {
			t.Errorf("stage order = %v then %v, want identical", first.StageOrder, second.StageOrder)
			break
		}
	}
	for key := range first.Outputs {
		if _, ok := second.Outputs[key]; !ok {
			t.Errorf("second run missing output %q", key)
		}
	}
	for key := range second.Outputs {
		if _, ok := first.Outputs[key]; !ok {
			t.Errorf("first run missing output %q", key)
		}
	}
}
