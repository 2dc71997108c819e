package llm

import (
	"errors"
	"net/http"

	"github.com/ahrav/go-loom/internal/ports"
)

// ErrNoResponseChoice is returned when a provider responds without any
// generated content.
var ErrNoResponseChoice = errors.New("provider returned no response choices")

// classifyStatus maps an HTTP status code onto the shared transport
// error sentinels so callers can branch on error kind without knowing
// which provider produced it.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return ports.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ports.ErrAuthenticationFailed
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ports.ErrTimeout
	case status >= 500:
		return ports.ErrServiceUnavailable
	default:
		return nil
	}
}

// wrapProviderError builds the uniform LLMError envelope around a
// provider failure, attaching the classified sentinel when the status
// is recognized.
func wrapProviderError(model, operation string, status int, err error) error {
	if sentinel := classifyStatus(status); sentinel != nil {
		err = errors.Join(sentinel, err)
	}
	return &ports.LLMError{Model: model, Operation: operation, Err: err}
}
