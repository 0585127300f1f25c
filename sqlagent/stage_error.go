// ABOUTME: Error handling stage: produces a diagnosis report for a failed run.
// ABOUTME: Diagnosis is best effort; the stage always succeeds so the report is never lost.
package sqlagent

import (
	"context"
	"encoding/json"

	"github.com/kft-research/queryflow/pipeline"
)

// ErrorReport is the structured diagnosis recorded when the pipeline routes
// to error handling.
type ErrorReport struct {
	Errors      []string `json:"errors"`
	Diagnosis   string   `json:"diagnosis"`
	Explanation string   `json:"explanation"`
	Suggestions string   `json:"suggestions"`
}

// HandleErrorStage summarizes the accumulated errors, optionally asking the
// model for a diagnosis. The model is allowed to be nil.
type HandleErrorStage struct {
	model ModelClient
}

func NewHandleErrorStage(model ModelClient) *HandleErrorStage {
	return &HandleErrorStage{model: model}
}

func (s *HandleErrorStage) Name() string { return StageHandleError }

func (s *HandleErrorStage) Execute(ctx context.Context, state *pipeline.State) *pipeline.Outcome {
	report := &ErrorReport{
		Diagnosis:   "Query processing failed.",
		Explanation: "The request could not be completed. See the recorded errors for details.",
		Suggestions: "Rephrase the query or try again later.",
	}
	for _, e := range state.Errors() {
		report.Errors = append(report.Errors, e.Error())
	}

	if s.model != nil && len(report.Errors) > 0 {
		prompt := diagnosisPrompt(
			state.RawInput(),
			report.Errors,
			stateTables(state),
			state.OutputString(KeyQueryTemplate, "none"),
		)
		if raw, err := s.model.GenerateText(ctx, diagnosisSystem, prompt); err == nil {
			var diag struct {
				Diagnosis   string `json:"diagnosis"`
				Explanation string `json:"explanation"`
				Suggestions string `json:"suggestions"`
			}
			if json.Unmarshal([]byte(stripCodeFence(raw)), &diag) == nil {
				if diag.Diagnosis != "" {
					report.Diagnosis = diag.Diagnosis
				}
				if diag.Explanation != "" {
					report.Explanation = diag.Explanation
				}
				if diag.Suggestions != "" {
					report.Suggestions = diag.Suggestions
				}
			}
		}
	}

	return pipeline.OKWithKey(KeyErrorReport, report)
}
