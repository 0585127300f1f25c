// ABOUTME: Filter extraction stage: asks the model to map the query onto the known vocabulary.
// ABOUTME: Unknown filter names in the model's answer are dropped rather than failing the run.
package sqlagent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kft-research/queryflow/pipeline"
)

// ExtractFiltersStage identifies filter conditions in the query and resolves
// them against the vocabulary.
type ExtractFiltersStage struct {
	model ModelClient
	vocab *Vocabulary
}

func NewExtractFiltersStage(model ModelClient, vocab *Vocabulary) *ExtractFiltersStage {
	return &ExtractFiltersStage{model: model, vocab: vocab}
}

func (s *ExtractFiltersStage) Name() string { return StageExtractFilters }

func (s *ExtractFiltersStage) Execute(ctx context.Context, state *pipeline.State) *pipeline.Outcome {
	prompt := filterExtractionPrompt(state.RawInput(), s.vocab)
	raw, err := s.model.GenerateText(ctx, filterExtractionSystem, prompt)
	if err != nil {
		return pipeline.Errorf(pipeline.KindCollaborator, "filter extraction failed: %v", err)
	}

	var extracted map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &extracted); err != nil {
		return pipeline.Errorf(pipeline.KindCollaborator, "filter extraction returned malformed JSON: %v", err)
	}

	filters := make(map[string]any, len(extracted))
	var dropped []string
	for name, value := range extracted {
		if !s.vocab.KnownFilter(name) {
			dropped = append(dropped, name)
			continue
		}
		filters[name] = value
	}

	out := pipeline.OKWithKey(KeyFilters, filters)
	if len(dropped) > 0 {
		sort.Strings(dropped)
		out.Notes = fmt.Sprintf("dropped unknown filters: %s", strings.Join(dropped, ", "))
	}
	return out
}
