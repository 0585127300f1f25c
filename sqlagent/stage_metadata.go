// ABOUTME: Metadata stage: asks the model for visualization parameter and grouping metadata.
// ABOUTME: The metadata is advisory context for payload construction, not the payload itself.
package sqlagent

import (
	"context"
	"encoding/json"

	"github.com/kft-research/queryflow/pipeline"
)

// GenerateMetadataStage derives visualization metadata from the generated
// query template.
type GenerateMetadataStage struct {
	model ModelClient
}

func NewGenerateMetadataStage(model ModelClient) *GenerateMetadataStage {
	return &GenerateMetadataStage{model: model}
}

func (s *GenerateMetadataStage) Name() string { return StageGenerateMetadata }

func (s *GenerateMetadataStage) Execute(ctx context.Context, state *pipeline.State) *pipeline.Outcome {
	template := state.OutputString(KeyQueryTemplate, "")
	if template == "" {
		return pipeline.Errorf(pipeline.KindValidation, "no query template available")
	}

	raw, err := s.model.GenerateText(ctx, metadataSystem, metadataPrompt(template, state.RawInput()))
	if err != nil {
		return pipeline.Errorf(pipeline.KindCollaborator, "metadata generation failed: %v", err)
	}

	var metadata map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &metadata); err != nil {
		return pipeline.Errorf(pipeline.KindCollaborator, "metadata generation returned malformed JSON: %v", err)
	}

	return pipeline.OKWithKey(KeyMetadata, metadata)
}
