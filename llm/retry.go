// ABOUTME: Retry logic with exponential backoff and full jitter for LLM API calls.
// ABOUTME: Honors per-error retryability and Retry-After hints from rate limit responses.

package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures retry behavior for LLM API calls.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts (not counting the
	// initial call).
	MaxRetries int

	// BaseDelay is the initial delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay is the upper bound on the delay between retries.
	MaxDelay time.Duration

	// BackoffMultiplier controls exponential growth of the delay.
	BackoffMultiplier float64

	// Jitter randomizes the delay to avoid thundering herd problems.
	Jitter bool

	// OnRetry is an optional callback invoked before each retry attempt.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns a RetryPolicy with sensible defaults:
// 2 retries, 1s base delay, 60s max delay, 2x backoff, jitter enabled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// CalculateDelay computes the delay for a given retry attempt using
// exponential backoff, capped at MaxDelay. With Jitter the delay is
// randomized between 0 and the calculated value (full jitter).
func (p RetryPolicy) CalculateDelay(attempt int) time.Duration {
	delayFloat := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if delayFloat > float64(p.MaxDelay) {
		delayFloat = float64(p.MaxDelay)
	}
	delay := time.Duration(delayFloat)
	if p.Jitter && delay > 0 {
		delay = time.Duration(rand.Int63n(int64(delay) + 1))
	}
	return delay
}

// ShouldRetry reports whether the call should be retried. Nil errors,
// non-retryable errors, and exhausted attempts all stop the loop.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.MaxRetries {
		return false
	}
	return IsRetryableError(err)
}

// retryAfterDelay extracts the provider's Retry-After hint, if any.
func retryAfterDelay(err error) (time.Duration, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter != nil {
		return time.Duration(*rle.RetryAfter * float64(time.Second)), true
	}
	return 0, false
}

// Retry invokes fn with the policy's backoff schedule until it succeeds, the
// error is not retryable, or attempts are exhausted. A Retry-After hint from
// a rate limit error overrides the computed backoff delay.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (*Response, error)) (*Response, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		resp, err := fn(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !policy.ShouldRetry(err, attempt) {
			return nil, lastErr
		}

		delay := policy.CalculateDelay(attempt)
		if hinted, ok := retryAfterDelay(err); ok {
			delay = hinted
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryMiddleware wraps completion calls with the given retry policy.
func RetryMiddleware(policy RetryPolicy) Middleware {
	return func(ctx context.Context, req Request, next NextFunc) (*Response, error) {
		return Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
			return next(ctx, req)
		})
	}
}
