// ABOUTME: Payload submission seam: HTTP submitter for the visualizer API plus an offline stub.
// ABOUTME: The HTTP submitter retries transient failures and surfaces token expiry distinctly.
package sqlagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SubmitResult describes the visualizer API's response to a payload
// submission.
type SubmitResult struct {
	RequestID  string `json:"request_id"`
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
}

// PayloadSubmitter delivers a constructed payload to the visualizer backend.
type PayloadSubmitter interface {
	Submit(ctx context.Context, payload *Payload) (*SubmitResult, error)
}

// HTTPSubmitter posts payloads to the visualizer's raw-query endpoint with
// bearer authentication. Transient failures (network errors and 5xx
// responses) are retried with a fixed delay.
type HTTPSubmitter struct {
	URL        string
	Token      string
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// NewHTTPSubmitter builds a submitter for the given endpoint and token.
func NewHTTPSubmitter(url, token string) *HTTPSubmitter {
	return &HTTPSubmitter{
		URL:        url,
		Token:      token,
		MaxRetries: 2,
		RetryDelay: 2 * time.Second,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit posts the payload as JSON. A 401 response is reported as token
// expiry and never retried.
func (s *HTTPSubmitter) Submit(ctx context.Context, payload *Payload) (*SubmitResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.RetryDelay):
			}
		}

		result, retryable, err := s.submitOnce(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("submission failed after %d attempts: %w", s.MaxRetries+1, lastErr)
}

func (s *HTTPSubmitter) submitOnce(ctx context.Context, body []byte) (*SubmitResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("post payload: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &SubmitResult{
			RequestID:  resp.Header.Get("X-Request-Id"),
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}, false, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, fmt.Errorf("authentication token expired or invalid (status 401)")
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("visualizer API returned status %d: %s", resp.StatusCode, respBody)
	default:
		return nil, false, fmt.Errorf("visualizer API rejected payload with status %d: %s", resp.StatusCode, respBody)
	}
}

// StubSubmitter accepts every payload without touching the network. Used for
// offline runs and tests. Safe for concurrent pipeline invocations sharing
// one instance.
type StubSubmitter struct {
	mu sync.Mutex
	// Submitted collects the payloads in submission order.
	Submitted []*Payload
}

func (s *StubSubmitter) Submit(_ context.Context, payload *Payload) (*SubmitResult, error) {
	s.mu.Lock()
	s.Submitted = append(s.Submitted, payload)
	s.mu.Unlock()
	return &SubmitResult{
		RequestID:  uuid.NewString(),
		StatusCode: http.StatusOK,
		Body:       `{"status":"accepted"}`,
	}, nil
}
