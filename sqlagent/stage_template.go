// ABOUTME: Query template stage: generates a parameterized PostgreSQL template from the model.
// ABOUTME: Rejects responses that are empty or not recognizably SQL after fence stripping.
package sqlagent

import (
	"context"
	"strings"

	"github.com/kft-research/queryflow/pipeline"
)

// GenerateTemplateStage produces the parameterized SQL template over the
// resolved tables and extracted filters.
type GenerateTemplateStage struct {
	model ModelClient
	vocab *Vocabulary
}

func NewGenerateTemplateStage(model ModelClient, vocab *Vocabulary) *GenerateTemplateStage {
	return &GenerateTemplateStage{model: model, vocab: vocab}
}

func (s *GenerateTemplateStage) Name() string { return StageGenerateTemplate }

func (s *GenerateTemplateStage) Execute(ctx context.Context, state *pipeline.State) *pipeline.Outcome {
	tables := stateTables(state)
	if len(tables) == 0 {
		return pipeline.Errorf(pipeline.KindValidation, "no target tables resolved")
	}

	prompt := queryTemplatePrompt(state.RawInput(), tables, stateFilters(state), s.vocab)
	raw, err := s.model.GenerateText(ctx, queryTemplateSystem, prompt)
	if err != nil {
		return pipeline.Errorf(pipeline.KindCollaborator, "query template generation failed: %v", err)
	}

	template := stripCodeFence(raw)
	if template == "" {
		return pipeline.Errorf(pipeline.KindCollaborator, "query template generation returned an empty template")
	}
	if !strings.Contains(strings.ToUpper(template), "SELECT") {
		return pipeline.Errorf(pipeline.KindCollaborator, "query template generation returned non-SQL output: %.80q", template)
	}

	return pipeline.OKWithKey(KeyQueryTemplate, template)
}
