// ABOUTME: Submission stage: delivers the constructed payload through the configured submitter.
// ABOUTME: Terminal success stage of the pipeline graph.
package sqlagent

import (
	"context"

	"github.com/kft-research/queryflow/pipeline"
)

// SubmitPayloadStage sends the constructed payload to the visualizer backend.
type SubmitPayloadStage struct {
	submitter PayloadSubmitter
}

func NewSubmitPayloadStage(submitter PayloadSubmitter) *SubmitPayloadStage {
	return &SubmitPayloadStage{submitter: submitter}
}

func (s *SubmitPayloadStage) Name() string { return StageSubmitPayload }

func (s *SubmitPayloadStage) Execute(ctx context.Context, state *pipeline.State) *pipeline.Outcome {
	v, ok := state.Output(KeyPayload)
	if !ok {
		return pipeline.Errorf(pipeline.KindValidation, "no payload available for submission")
	}
	payload, ok := v.(*Payload)
	if !ok {
		return pipeline.Errorf(pipeline.KindInternal, "payload artifact has unexpected type %T", v)
	}

	result, err := s.submitter.Submit(ctx, payload)
	if err != nil {
		return pipeline.Errorf(pipeline.KindCollaborator, "payload submission failed: %v", err)
	}
	return pipeline.OKWithKey(KeyResponse, result)
}
