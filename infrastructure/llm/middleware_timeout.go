package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-loom/internal/domain"
)

// timeoutLLM bounds each request with a context deadline.
type timeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that enforces a per-request
// deadline, so a hung provider cannot stall a graph run indefinitely.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &timeoutLLM{next: next, timeout: timeout}
	}
}

// DoRequest forwards the call under a deadline-bounded context.
func (t *timeoutLLM) DoRequest(ctx context.Context, messages []domain.Message, opts map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, messages, opts)
}

// GetModel returns the model name from the wrapped implementation.
func (t *timeoutLLM) GetModel() string { return t.next.GetModel() }
