// ABOUTME: Narrow language-model capability interface consumed by pipeline stages.
// ABOUTME: Production implementation wraps the llm client; tests substitute scripted fakes.
package sqlagent

import (
	"context"
	"fmt"

	"github.com/kft-research/queryflow/llm"
)

// DefaultModel is the model used when none is configured. Matches the
// generation model the visualizer backend was tuned against.
const DefaultModel = "gemini-2.0-flash"

// ModelClient is the language-model collaborator seam. Stages depend on this
// single text-generation capability rather than the full LLM SDK, which
// keeps engine and stage tests free of live services.
type ModelClient interface {
	// GenerateText sends a system prompt and a user prompt to the model and
	// returns the raw response text.
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// LLMClient implements ModelClient on top of the unified llm.Client.
type LLMClient struct {
	Client      *llm.Client
	Model       string
	Provider    string
	Temperature *float64
}

// NewLLMClient wraps an llm.Client with the given model name. An empty model
// falls back to DefaultModel.
func NewLLMClient(client *llm.Client, model string) *LLMClient {
	if model == "" {
		model = DefaultModel
	}
	return &LLMClient{Client: client, Model: model}
}

// GenerateText sends the prompts as a system+user conversation and returns
// the model's text.
func (c *LLMClient) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.Client.Complete(ctx, llm.Request{
		Model:    c.Model,
		Provider: c.Provider,
		Messages: []llm.Message{
			llm.SystemMessage(system),
			llm.UserMessage(prompt),
		},
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("model %q returned an empty response", c.Model)
	}
	return resp.Text, nil
}
