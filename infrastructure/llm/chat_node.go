package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.Node = (*ChatNode)(nil)

// ChatNode sends a prompt, optionally preceded by conversation history,
// to an LLM and emits the completion on its "response" port. The client
// is injected by the registry, so one provider configuration serves
// every chat node in a graph.
type ChatNode struct {
	id     string
	config ChatConfig
	client ports.LLMClient
	tracer trace.Tracer
}

// ChatConfig carries the per-node completion parameters forwarded to
// the provider.
type ChatConfig struct {
	// System is the system prompt framing every request.
	System string `yaml:"system"`
	// Model overrides the client's default model when non-empty.
	Model string `yaml:"model"`
	// Temperature controls sampling randomness, 0 to 2.
	Temperature *float64 `yaml:"temperature" validate:"omitempty,min=0,max=2"`
	// MaxTokens bounds the completion length.
	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=1"`
}

// NewChatNode creates a ChatNode backed by the given client.
func NewChatNode(id string, config ChatConfig, client ports.LLMClient) (*ChatNode, error) {
	if id == "" {
		return nil, fmt.Errorf("chat node id cannot be empty")
	}
	if client == nil {
		return nil, fmt.Errorf("chat node %s requires an llm client", id)
	}

	return &ChatNode{
		id:     id,
		config: config,
		client: client,
		tracer: otel.Tracer("chat-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (cn *ChatNode) ID() string { return cn.id }

// Name returns a human-readable name for logging.
func (cn *ChatNode) Name() string { return "Chat(" + cn.id + ")" }

// InputPorts declares the required prompt and optional history.
func (cn *ChatNode) InputPorts() []domain.Port {
	return []domain.Port{
		domain.NewPort("prompt", domain.TypeString),
		domain.NewPort("history", domain.TypeMessageList).Optional(),
	}
}

// OutputPorts declares the string "response" port.
func (cn *ChatNode) OutputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("response", domain.TypeString)}
}

// Execute assembles the message slice and requests a completion.
func (cn *ChatNode) Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	ctx, span := cn.tracer.Start(ctx, "ChatNode.Execute",
		trace.WithAttributes(
			attribute.String("node.type", "chat"),
			attribute.String("node.id", cn.id),
			attribute.String("llm.model", cn.client.GetModel()),
		),
	)
	defer span.End()

	promptValue, ok := inputs["prompt"]
	if !ok {
		err := fmt.Errorf("chat node %s: required input not provided: prompt", cn.id)
		span.RecordError(err)
		return nil, err
	}
	prompt, ok := promptValue.AsString()
	if !ok {
		err := fmt.Errorf("chat node %s: prompt is %s, want string", cn.id, promptValue.Type())
		span.RecordError(err)
		return nil, err
	}

	var messages []domain.Message
	if historyValue, ok := inputs["history"]; ok {
		history, ok := historyValue.AsMessageList()
		if !ok {
			err := fmt.Errorf("chat node %s: history is %s, want message_list", cn.id, historyValue.Type())
			span.RecordError(err)
			return nil, err
		}
		messages = append(messages, history...)
	}
	messages = append(messages, domain.Message{
		Role:    "user",
		Content: prompt,
		SentAt:  time.Now().UTC(),
	})

	options := map[string]any{}
	if cn.config.System != "" {
		options["system"] = cn.config.System
	}
	if cn.config.Model != "" {
		options["model"] = cn.config.Model
	}
	if cn.config.Temperature != nil {
		options["temperature"] = *cn.config.Temperature
	}
	if cn.config.MaxTokens > 0 {
		options["max_tokens"] = cn.config.MaxTokens
	}

	start := time.Now()
	response, err := cn.client.Complete(ctx, messages, options)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat node %s: completion failed: %w", cn.id, err)
	}

	span.SetAttributes(
		attribute.Int("llm.messages_count", len(messages)),
		attribute.Int64("llm.latency_ms", time.Since(start).Milliseconds()),
		attribute.Int("llm.response_length", len(response)),
	)
	return map[string]domain.DataValue{"response": domain.StringValue(response)}, nil
}

// CreateChatNode creates a ChatNode from a configuration map. The
// registry injects the shared client under the "llm_client" key before
// calling this factory.
//
// Supported config keys:
//   - "system" (string): system prompt
//   - "model" (string): model override
//   - "temperature" (float): sampling randomness, 0 to 2
//   - "max_tokens" (int): completion budget
func CreateChatNode(id string, config map[string]any) (ports.Node, error) {
	client, _ := config["llm_client"].(ports.LLMClient)
	delete(config, "llm_client")

	var cfg ChatConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	return NewChatNode(id, cfg, client)
}
