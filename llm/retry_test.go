// ABOUTME: Tests for retry policy delay math and the retry loop's stop conditions.
// ABOUTME: Uses millisecond-scale policies so the suite stays fast.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		BaseDelay:         time.Millisecond,
		MaxDelay:          10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func retryableErr() error {
	return &ServerError{ProviderError{
		SDKError:   SDKError{Message: "upstream 500"},
		Provider:   "test",
		StatusCode: 500,
		Retryable:  true,
	}}
}

func TestCalculateDelayExponentialGrowth(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:         time.Second,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := p.CalculateDelay(tt.attempt); got != tt.want {
			t.Errorf("CalculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestCalculateDelayCapsAtMax(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:         time.Second,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
	}
	if got := p.CalculateDelay(10); got != 5*time.Second {
		t.Errorf("CalculateDelay(10) = %v, want 5s", got)
	}
}

func TestCalculateDelayJitterStaysInRange(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:         time.Second,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
	for i := 0; i < 50; i++ {
		d := p.CalculateDelay(2)
		if d < 0 || d > 4*time.Second {
			t.Fatalf("jittered delay %v outside [0, 4s]", d)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	p := fastPolicy(2)

	if p.ShouldRetry(nil, 0) {
		t.Error("nil error should not retry")
	}
	if p.ShouldRetry(retryableErr(), 2) {
		t.Error("exhausted attempts should not retry")
	}
	if !p.ShouldRetry(retryableErr(), 1) {
		t.Error("retryable error under the limit should retry")
	}

	notRetryable := &InvalidRequestError{ProviderError{
		SDKError:   SDKError{Message: "bad request"},
		StatusCode: 400,
	}}
	if p.ShouldRetry(notRetryable, 0) {
		t.Error("non-retryable error should not retry")
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var calls int
	resp, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (*Response, error) {
		calls++
		if calls < 3 {
			return nil, retryableErr()
		}
		return &Response{Text: "ok"}, nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Text = %q", resp.Text)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	var calls int
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (*Response, error) {
		calls++
		return nil, &AuthenticationError{ProviderError{
			SDKError:   SDKError{Message: "bad key"},
			StatusCode: 401,
		}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	var calls int
	_, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (*Response, error) {
		calls++
		return nil, retryableErr()
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := fastPolicy(5)
	policy.BaseDelay = time.Minute
	policy.MaxDelay = time.Minute

	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
			return nil, retryableErr()
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
}

func TestRetryHonorsRetryAfterHint(t *testing.T) {
	hint := 0.005
	rateErr := &RateLimitError{ProviderError{
		SDKError:   SDKError{Message: "slow down"},
		Provider:   "test",
		StatusCode: 429,
		Retryable:  true,
		RetryAfter: &hint,
		Raw:        json.RawMessage(`{}`),
	}}

	var observed time.Duration
	policy := fastPolicy(1)
	policy.BaseDelay = time.Minute
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		observed = delay
	}

	var calls int
	_, _ = Retry(context.Background(), policy, func(ctx context.Context) (*Response, error) {
		calls++
		return nil, rateErr
	})

	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if observed != 5*time.Millisecond {
		t.Errorf("delay = %v, want 5ms from Retry-After hint", observed)
	}
}

func TestRetryMiddleware(t *testing.T) {
	var calls int
	mw := RetryMiddleware(fastPolicy(2))

	resp, err := mw(context.Background(), Request{}, func(ctx context.Context, req Request) (*Response, error) {
		calls++
		if calls == 1 {
			return nil, retryableErr()
		}
		return &Response{Text: "recovered"}, nil
	})
	if err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if resp.Text != "recovered" {
		t.Errorf("Text = %q", resp.Text)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", p.MaxRetries)
	}
	if !p.Jitter {
		t.Error("Jitter should default on")
	}
	if p.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v", p.BackoffMultiplier)
	}
	if fmt.Sprintf("%v", p.BaseDelay) != "1s" {
		t.Errorf("BaseDelay = %v", p.BaseDelay)
	}
}
