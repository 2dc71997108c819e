package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-loom/internal/domain"
)

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like
// authentication, request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request to the LLM provider.
	// It returns the generated text and any error encountered.
	// The implementation should handle rate limiting and timeouts.
	//
	// The options map allows flexibility for different providers without
	// changing the interface. Common options include:
	//   - "temperature": float64 (0.0-1.0)
	//   - "max_tokens": int
	//   - "system": string (system prompt)
	Complete(ctx context.Context, messages []domain.Message, options map[string]any) (string, error)

	// EstimateTokens calculates the approximate token count for a given
	// text. The estimation method may vary by provider.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier used by this client,
	// for logging and debugging.
	GetModel() string
}

// MessageStore defines the interface for persisting and recalling chat
// messages by identifier. It is exposed to the graph as an injectable
// dependency for any node needing historical lookup.
type MessageStore interface {
	// Store persists a message keyed by its ID. Storing a message with
	// an existing ID overwrites the previous record.
	Store(ctx context.Context, msg domain.Message) error

	// Get retrieves a message by its ID. It returns the message and
	// true when found, or the zero Message and false when absent.
	Get(ctx context.Context, id string) (domain.Message, bool, error)

	// Recent returns up to limit messages for a conversation, oldest
	// first, for building chat history context. The limit must be
	// positive.
	Recent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)

	// Close releases the store's underlying resources.
	Close() error
}

// MetricsCollector defines the interface for collecting operational
// metrics. Implementations should integrate with observability platforms
// like Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like node executions,
	// producer ticks, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric, such as
	// the number of live producer subtrees.
	RecordGauge(metric string, value float64, labels map[string]string)
}
