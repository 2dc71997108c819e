package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

// Backoff shape used when the configuration leaves the delays zero.
const (
	defaultRetryBaseDelay = 200 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second
)

// retryLLM retries failed requests with exponential backoff so
// transient provider failures do not surface as node errors.
type retryLLM struct {
	next       CoreLLM
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware creates middleware that retries failed requests up to
// maxRetries additional times with exponential backoff and jitter.
// Authentication failures and an open circuit are terminal and never
// retried; context cancellation stops the loop immediately.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}

	return func(next CoreLLM) CoreLLM {
		return &retryLLM{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

// DoRequest executes the request, re-attempting retryable failures
// until the attempt budget is spent.
func (r *retryLLM) DoRequest(ctx context.Context, messages []domain.Message, opts map[string]any) (string, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		attempts++
		response, err := r.next.DoRequest(ctx, messages, opts)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}

	return "", fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// retryable reports whether a failure is worth another attempt.
// Authentication failures are deterministic, and an open circuit
// already failed fast without reaching the provider.
func retryable(err error) bool {
	return !errors.Is(err, ErrCircuitOpen) && !errors.Is(err, ports.ErrAuthenticationFailed)
}

// backoff computes the delay before the next attempt: exponential in
// the attempt number with ±25% jitter, capped at maxDelay.
func (r *retryLLM) backoff(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := time.Duration(float64(r.baseDelay) * float64(uint64(1)<<uint(attempt)))

	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - delay/4

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

// GetModel returns the model name from the wrapped implementation.
func (r *retryLLM) GetModel() string { return r.next.GetModel() }
