// ABOUTME: Payload construction stage: classifies the query and assembles the visualizer payload.
// ABOUTME: Model analysis is best effort; vocabulary defaults and the name heuristic cover the gaps.
package sqlagent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kft-research/queryflow/pipeline"
)

// ConstructPayloadStage builds the full visualizer payload from the query
// template and the model's classification of the query.
type ConstructPayloadStage struct {
	model ModelClient
	vocab *Vocabulary
}

func NewConstructPayloadStage(model ModelClient, vocab *Vocabulary) *ConstructPayloadStage {
	return &ConstructPayloadStage{model: model, vocab: vocab}
}

func (s *ConstructPayloadStage) Name() string { return StageConstructPayload }

func (s *ConstructPayloadStage) Execute(ctx context.Context, state *pipeline.State) *pipeline.Outcome {
	template := state.OutputString(KeyQueryTemplate, "")
	if template == "" {
		return pipeline.Errorf(pipeline.KindValidation, "no query template available")
	}

	// A failed analysis does not fail the stage. BuildPayload falls back to
	// vocabulary defaults and the heuristic name generator.
	var analysis queryAnalysis
	var note string
	raw, err := s.model.GenerateText(ctx, payloadAnalysisSystem, payloadAnalysisPrompt(state.RawInput(), template))
	if err != nil {
		note = fmt.Sprintf("query analysis unavailable, using defaults: %v", err)
	} else if err := json.Unmarshal([]byte(stripCodeFence(raw)), &analysis); err != nil {
		note = fmt.Sprintf("query analysis returned malformed JSON, using defaults: %v", err)
	}

	payload := BuildPayload(s.vocab, state.RawInput(), template, analysis)
	out := pipeline.OKWithKey(KeyPayload, payload)
	out.Notes = note
	return out
}
