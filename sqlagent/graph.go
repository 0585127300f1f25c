// ABOUTME: Agent facade: wires the six processing stages plus error handling into a pipeline graph.
// ABOUTME: Every processing stage routes to handle_error on failure; only submission reaches SUCCESS.
package sqlagent

import (
	"context"
	"fmt"

	"github.com/kft-research/queryflow/pipeline"
)

// AgentConfig configures a query agent.
type AgentConfig struct {
	// Vocabulary is the filter and column catalog. Required.
	Vocabulary *Vocabulary

	// Model generates filter extractions, query templates, metadata, and
	// diagnoses. Required.
	Model ModelClient

	// Submitter delivers the constructed payload. Required.
	Submitter PayloadSubmitter

	// MaxSteps bounds the pipeline run. Zero means the engine default.
	MaxSteps int

	// Events, when set, receives engine lifecycle events.
	Events func(pipeline.Event)
}

// Agent turns a natural language query into a submitted visualizer payload.
type Agent struct {
	engine *pipeline.Engine
}

// NewAgent builds the stage graph and engine for the query pipeline.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if cfg.Vocabulary == nil {
		return nil, fmt.Errorf("agent: vocabulary is required")
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("agent: model client is required")
	}
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("agent: submitter is required")
	}

	stages := pipeline.NewRegistry()
	stages.Register(NewParseQueryStage(cfg.Vocabulary))
	stages.Register(NewExtractFiltersStage(cfg.Model, cfg.Vocabulary))
	stages.Register(NewGenerateTemplateStage(cfg.Model, cfg.Vocabulary))
	stages.Register(NewGenerateMetadataStage(cfg.Model))
	stages.Register(NewConstructPayloadStage(cfg.Model, cfg.Vocabulary))
	stages.Register(NewSubmitPayloadStage(cfg.Submitter))
	stages.Register(NewHandleErrorStage(cfg.Model))

	graph := pipeline.NewGraph(StageParseQuery, stages)
	chain := []string{
		StageParseQuery,
		StageExtractFilters,
		StageGenerateTemplate,
		StageGenerateMetadata,
		StageConstructPayload,
		StageSubmitPayload,
	}
	for i, name := range chain {
		if i+1 < len(chain) {
			graph.AddEdge(name, chain[i+1])
		}
		graph.AddErrorEdge(name, StageHandleError)
	}
	graph.AddEdge(StageSubmitPayload, pipeline.StageSuccess)
	graph.AddEdge(StageHandleError, pipeline.StageFailure)

	engine, err := pipeline.NewEngine(graph, pipeline.Config{
		MaxSteps:     cfg.MaxSteps,
		EventHandler: cfg.Events,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	return &Agent{engine: engine}, nil
}

// Run processes one query through the pipeline and returns the final state.
func (a *Agent) Run(ctx context.Context, query string) *pipeline.FinalState {
	return a.engine.Run(ctx, query)
}
