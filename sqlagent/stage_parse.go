// ABOUTME: First pipeline stage: validates the raw query and resolves target tables.
// ABOUTME: Also holds the shared state-reading helpers the downstream stages use.
package sqlagent

import (
	"context"
	"strings"

	"github.com/kft-research/queryflow/pipeline"
)

// Output keys written by the stages. Each stage owns exactly one key.
const (
	KeyTables        = "tables"
	KeyFilters       = "filters"
	KeyQueryTemplate = "query_template"
	KeyMetadata      = "metadata"
	KeyPayload       = "payload"
	KeyResponse      = "response"
	KeyErrorReport   = "error_report"
)

// Stage names as they appear in the graph and in diagnostics.
const (
	StageParseQuery       = "parse_query"
	StageExtractFilters   = "extract_filters"
	StageGenerateTemplate = "generate_query_template"
	StageGenerateMetadata = "generate_metadata"
	StageConstructPayload = "construct_payload"
	StageSubmitPayload    = "submit_payload"
	StageHandleError      = "handle_error"
)

// ParseQueryStage validates the raw input and records the target tables the
// rest of the pipeline operates on.
type ParseQueryStage struct {
	vocab *Vocabulary
}

func NewParseQueryStage(vocab *Vocabulary) *ParseQueryStage {
	return &ParseQueryStage{vocab: vocab}
}

func (s *ParseQueryStage) Name() string { return StageParseQuery }

func (s *ParseQueryStage) Execute(ctx context.Context, state *pipeline.State) *pipeline.Outcome {
	query := strings.TrimSpace(state.RawInput())
	if query == "" {
		return pipeline.Errorf(pipeline.KindValidation, "query is empty")
	}
	return pipeline.OKWithKey(KeyTables, []string{s.vocab.DefaultTable})
}

// stateTables reads the resolved target tables out of the shared state.
func stateTables(state *pipeline.State) []string {
	v, ok := state.Output(KeyTables)
	if !ok {
		return nil
	}
	tables, _ := v.([]string)
	return tables
}

// stateFilters reads the extracted filter map out of the shared state.
func stateFilters(state *pipeline.State) map[string]any {
	v, ok := state.Output(KeyFilters)
	if !ok {
		return nil
	}
	filters, _ := v.(map[string]any)
	return filters
}
