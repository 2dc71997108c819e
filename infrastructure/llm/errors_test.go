package llm

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-loom/internal/ports"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, want: ports.ErrRateLimited},
		{name: "unauthorized", status: http.StatusUnauthorized, want: ports.ErrAuthenticationFailed},
		{name: "forbidden", status: http.StatusForbidden, want: ports.ErrAuthenticationFailed},
		{name: "request timeout", status: http.StatusRequestTimeout, want: ports.ErrTimeout},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, want: ports.ErrTimeout},
		{name: "server error", status: http.StatusInternalServerError, want: ports.ErrServiceUnavailable},
		{name: "bad gateway", status: http.StatusBadGateway, want: ports.ErrServiceUnavailable},
		{name: "client error unclassified", status: http.StatusBadRequest, want: nil},
		{name: "success unclassified", status: http.StatusOK, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStatus(tt.status))
		})
	}
}

func TestWrapProviderError(t *testing.T) {
	cause := errors.New("connection reset")

	err := wrapProviderError("m1", "completion", http.StatusTooManyRequests, cause)
	var llmErr *ports.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "m1", llmErr.Model)
	assert.Equal(t, "completion", llmErr.Operation)
	assert.ErrorIs(t, err, ports.ErrRateLimited)
	assert.ErrorIs(t, err, cause)

	// Unrecognized statuses keep the original cause without a sentinel.
	err = wrapProviderError("m1", "completion", http.StatusBadRequest, cause)
	require.ErrorAs(t, err, &llmErr)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ports.ErrRateLimited)
}
