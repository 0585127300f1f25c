// ABOUTME: Error hierarchy for the LLM client with per-type retryability.
// ABOUTME: Maps provider HTTP status codes onto structured error types.

package llm

import (
	"encoding/json"
)

// SDKError is the base error type for all errors in the LLM client.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns false for the base SDKError. Subtypes override this.
func (e *SDKError) IsRetryable() bool {
	return false
}

// ConfigurationError indicates a client-side setup problem (missing API key,
// unknown provider). Never retryable.
type ConfigurationError struct {
	SDKError
}

// NetworkError indicates the HTTP request itself failed (connection refused,
// DNS, timeout). Retryable.
type NetworkError struct {
	SDKError
	Timeout bool
}

func (e *NetworkError) IsRetryable() bool { return true }

// ProviderError represents an error response from an LLM provider's API.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	ErrorCode  string
	Retryable  bool
	RetryAfter *float64
	Raw        json.RawMessage
}

// IsRetryable returns the Retryable flag set on the provider error.
func (e *ProviderError) IsRetryable() bool {
	return e.Retryable
}

// As enables errors.As to match SDKError from a ProviderError.
func (e *ProviderError) As(target any) bool {
	if t, ok := target.(**SDKError); ok {
		*t = &e.SDKError
		return true
	}
	return false
}

// AuthenticationError represents a 401 Unauthorized response. Not retryable.
type AuthenticationError struct {
	ProviderError
}

func (e *AuthenticationError) IsRetryable() bool { return false }

func (e *AuthenticationError) As(target any) bool {
	if t, ok := target.(**ProviderError); ok {
		*t = &e.ProviderError
		return true
	}
	return e.ProviderError.As(target)
}

// InvalidRequestError represents a 400 or 422 response. Not retryable.
type InvalidRequestError struct {
	ProviderError
}

func (e *InvalidRequestError) IsRetryable() bool { return false }

func (e *InvalidRequestError) As(target any) bool {
	if t, ok := target.(**ProviderError); ok {
		*t = &e.ProviderError
		return true
	}
	return e.ProviderError.As(target)
}

// RateLimitError represents a 429 response. Retryable, honoring RetryAfter.
type RateLimitError struct {
	ProviderError
}

func (e *RateLimitError) IsRetryable() bool { return true }

func (e *RateLimitError) As(target any) bool {
	if t, ok := target.(**ProviderError); ok {
		*t = &e.ProviderError
		return true
	}
	return e.ProviderError.As(target)
}

// ServerError represents a 5xx response. Retryable.
type ServerError struct {
	ProviderError
}

func (e *ServerError) IsRetryable() bool { return true }

func (e *ServerError) As(target any) bool {
	if t, ok := target.(**ProviderError); ok {
		*t = &e.ProviderError
		return true
	}
	return e.ProviderError.As(target)
}

// ErrorFromStatusCode maps an HTTP status code to the appropriate structured
// error type. Unknown status codes are treated as retryable provider errors.
func ErrorFromStatusCode(statusCode int, message, provider, errorCode string, raw json.RawMessage, retryAfter *float64) error {
	base := ProviderError{
		SDKError:   SDKError{Message: message},
		Provider:   provider,
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Raw:        raw,
		RetryAfter: retryAfter,
	}

	switch {
	case statusCode == 400 || statusCode == 422:
		base.Retryable = false
		return &InvalidRequestError{ProviderError: base}
	case statusCode == 401 || statusCode == 403:
		base.Retryable = false
		return &AuthenticationError{ProviderError: base}
	case statusCode == 429:
		base.Retryable = true
		return &RateLimitError{ProviderError: base}
	case statusCode >= 500 && statusCode <= 599:
		base.Retryable = true
		return &ServerError{ProviderError: base}
	default:
		base.Retryable = true
		return &base
	}
}

// IsRetryableError reports whether err carries retryability information and
// asks to be retried.
func IsRetryableError(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}
	return false
}
