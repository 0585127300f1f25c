// ABOUTME: Core data model types for the text-generation LLM client.
// ABOUTME: Defines Message, Request, Response, Usage, and adapter timeout configuration.

package llm

import (
	"encoding/json"
	"time"
)

// Role represents who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn of text in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage creates a user-role message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// Request is a provider-agnostic text completion request.
type Request struct {
	Model         string    `json:"model"`
	Messages      []Message `json:"messages"`
	Provider      string    `json:"provider,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
	MaxTokens     *int      `json:"max_tokens,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response is the unified result of a completion request.
type Response struct {
	ID           string          `json:"id,omitempty"`
	Model        string          `json:"model"`
	Provider     string          `json:"provider"`
	Text         string          `json:"text"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Usage        Usage           `json:"usage"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// AdapterTimeout configures the HTTP timeouts for a provider adapter.
type AdapterTimeout struct {
	Connect time.Duration
	Request time.Duration
}

// DefaultAdapterTimeout returns the default timeout configuration:
// 10s connect, 120s per request.
func DefaultAdapterTimeout() AdapterTimeout {
	return AdapterTimeout{
		Connect: 10 * time.Second,
		Request: 120 * time.Second,
	}
}

// ExtractSystemMessages splits system-role messages out of a conversation,
// returning their concatenated text and the remaining messages. Providers
// that carry system text out-of-band (Gemini's systemInstruction) use this.
func ExtractSystemMessages(messages []Message) (string, []Message) {
	var systemText string
	remaining := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if systemText != "" {
				systemText += "\n\n"
			}
			systemText += msg.Content
			continue
		}
		remaining = append(remaining, msg)
	}
	return systemText, remaining
}

// Float64Ptr returns a pointer to v, for optional request fields.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v, for optional request fields.
func IntPtr(v int) *int { return &v }
