package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-loom/internal/domain"
)

// ErrCircuitOpen indicates the circuit breaker rejected a request
// without reaching the provider.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed lets requests pass through normally.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects requests immediately until the cooldown expires.
	StateOpen

	// StateHalfOpen admits one request to probe provider recovery.
	StateHalfOpen
)

// CircuitBreaker tracks consecutive failures and opens once they reach
// the threshold, shedding load from a struggling provider. After the
// cooldown a single probe request decides between reclosing and
// reopening.
type CircuitBreaker struct {
	mu          sync.RWMutex
	state       CircuitBreakerState
	failures    int
	maxFailures int
	cooldown    time.Duration
	lastFailure time.Time
}

// NewCircuitBreaker creates a breaker that opens after maxFailures
// consecutive errors and stays open for cooldown before probing.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		cooldown:    cooldown,
	}
}

// Call executes fn through the breaker. An open circuit returns
// ErrCircuitOpen without invoking fn; otherwise the result updates the
// failure count and state.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		fallthrough
	case StateHalfOpen:
		err := fn()
		if err != nil {
			cb.failures++
			cb.lastFailure = time.Now()
			cb.state = StateOpen
			return err
		}
		cb.failures = 0
		cb.state = StateClosed
		return nil
	default:
		err := fn()
		if err != nil {
			cb.failures++
			cb.lastFailure = time.Now()
			if cb.failures >= cb.maxFailures {
				cb.state = StateOpen
			}
			return err
		}
		cb.failures = 0
		return nil
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// circuitBreakedLLM fails fast while the provider is unhealthy instead
// of piling more requests onto it.
type circuitBreakedLLM struct {
	next CoreLLM
	cb   *CircuitBreaker
}

// CircuitBreakerMiddleware creates middleware sharing one breaker
// across every request through the wrapped client.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)

	return func(next CoreLLM) CoreLLM {
		return &circuitBreakedLLM{next: next, cb: cb}
	}
}

// DoRequest executes the request through the circuit breaker.
func (c *circuitBreakedLLM) DoRequest(ctx context.Context, messages []domain.Message, opts map[string]any) (string, error) {
	var response string
	err := c.cb.Call(func() error {
		var err error
		response, err = c.next.DoRequest(ctx, messages, opts)
		return err
	})
	return response, err
}

// GetModel returns the model name from the wrapped implementation.
func (c *circuitBreakedLLM) GetModel() string { return c.next.GetModel() }
