package llm

import (
	"context"
	"sync"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.LLMClient = (*MockClient)(nil)

// MockClient is a configurable LLMClient double for tests. It records
// every Complete call and replies with a canned response or error.
type MockClient struct {
	mu sync.Mutex

	// Response is returned by Complete when Err is nil.
	Response string
	// Err, when set, is returned by every Complete call.
	Err error
	// Model is reported by GetModel.
	Model string

	// Calls records the message slices passed to Complete.
	Calls [][]domain.Message
	// Options records the option maps passed to Complete.
	Options []map[string]any
}

// Complete records the call and returns the canned result.
func (m *MockClient) Complete(_ context.Context, messages []domain.Message, options map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, messages)
	m.Options = append(m.Options, options)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// EstimateTokens uses the same heuristic as the real client.
func (m *MockClient) EstimateTokens(text string) (int, error) {
	return (len(text) + charsPerToken - 1) / charsPerToken, nil
}

// GetModel reports the configured model name.
func (m *MockClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// CallCount returns the number of Complete invocations.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
