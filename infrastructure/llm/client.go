// Package llm provides LLM provider integrations behind the
// ports.LLMClient interface, with a middleware chain for cross-cutting
// concerns: rate limiting, request timeouts, retries with backoff, and
// circuit breaking.
package llm

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

// charsPerToken is the rough character-to-token ratio used for
// estimation when the provider does not report usage.
const charsPerToken = 4

// CoreLLM is the minimal provider contract the middleware chain wraps.
// Providers translate the neutral message slice into their wire format.
type CoreLLM interface {
	// DoRequest sends one completion request and returns the generated
	// text.
	DoRequest(ctx context.Context, messages []domain.Message, opts map[string]any) (string, error)

	// GetModel returns the provider's configured model identifier.
	GetModel() string
}

// Middleware wraps a CoreLLM with additional behavior.
type Middleware func(CoreLLM) CoreLLM

// rateLimitedLLM enforces a token bucket over requests so a chatty
// graph cannot exceed provider rate limits.
type rateLimitedLLM struct {
	next    CoreLLM
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that paces requests with a
// token bucket. The limit parameter sets requests per second; burst
// allows short spikes above the sustained rate.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{next: next, limiter: limiter}
	}
}

// DoRequest blocks until a token is available, then forwards the call.
func (r *rateLimitedLLM) DoRequest(ctx context.Context, messages []domain.Message, opts map[string]any) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, messages, opts)
}

// GetModel returns the model name from the wrapped implementation.
func (r *rateLimitedLLM) GetModel() string { return r.next.GetModel() }

// Client adapts a middleware-wrapped CoreLLM to the ports.LLMClient
// interface consumed by chat nodes.
type Client struct {
	core CoreLLM
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds a client from provider configuration, stacking the
// configured middlewares around the provider. Inside out: the timeout
// bounds each provider call, the rate limiter paces admitted requests,
// the circuit breaker sheds load before a token is spent, and the
// retry loop re-enters the whole chain so each attempt re-acquires a
// rate token.
func NewClient(config ClientConfig) (*Client, error) {
	core, err := newProvider(config)
	if err != nil {
		return nil, err
	}

	if config.Timeout > 0 {
		core = TimeoutMiddleware(config.Timeout)(core)
	}
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		core = RateLimitMiddleware(rate.Limit(config.RequestsPerSecond), burst)(core)
	}
	if config.BreakerFailures > 0 {
		cooldown := config.BreakerCooldown
		if cooldown <= 0 {
			cooldown = defaultBreakerCooldown
		}
		core = CircuitBreakerMiddleware(config.BreakerFailures, cooldown)(core)
	}
	if config.MaxRetries > 0 {
		core = RetryMiddleware(config.MaxRetries, config.RetryBaseDelay, config.RetryMaxDelay)(core)
	}

	return &Client{core: core}, nil
}

// Complete sends a completion request through the middleware chain.
func (c *Client) Complete(ctx context.Context, messages []domain.Message, options map[string]any) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages provided", ports.ErrInvalidResponse)
	}
	return c.core.DoRequest(ctx, messages, options)
}

// EstimateTokens approximates the token count of text using a
// character heuristic. Providers report exact usage; this exists for
// pre-flight budget checks.
func (c *Client) EstimateTokens(text string) (int, error) {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken, nil
}

// GetModel returns the underlying provider's model identifier.
func (c *Client) GetModel() string { return c.core.GetModel() }
