// ABOUTME: OpenAI Chat Completions provider adapter built on the official openai-go SDK.
// ABOUTME: Supports custom base URLs for OpenAI-compatible services (OpenRouter, Cerebras, gateways).

package llm

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter implements ProviderAdapter using the OpenAI Chat Completions
// API via the official SDK. A custom base URL points it at any
// OpenAI-compatible provider.
type OpenAIAdapter struct {
	client openai.Client
}

// NewOpenAIAdapter creates an adapter with the given API key. baseURL may be
// empty for the default OpenAI endpoint.
func NewOpenAIAdapter(apiKey, baseURL string) *OpenAIAdapter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{client: openai.NewClient(opts...)}
}

// Name returns the provider name "openai".
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Close releases any resources held by the adapter.
func (a *OpenAIAdapter) Close() error {
	return nil
}

// Complete sends a chat completion request and returns a unified Response.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	}

	var messages []openai.ChatCompletionMessageParamUnion
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	params.Messages = messages

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &ProviderError{
			SDKError:  SDKError{Message: "chat completion failed", Cause: err},
			Provider:  "openai",
			Retryable: false,
		}
	}

	result := &Response{
		ID:       resp.ID,
		Model:    resp.Model,
		Provider: "openai",
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}
	if raw, marshalErr := json.Marshal(resp); marshalErr == nil {
		result.Raw = raw
	}

	if len(resp.Choices) > 0 {
		result.Text = resp.Choices[0].Message.Content
		result.FinishReason = string(resp.Choices[0].FinishReason)
	}

	return result, nil
}
