package store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.Node = (*ChatHistoryNode)(nil)

// DefaultHistoryLimit is the message window used when a history node's
// configuration does not set one.
const DefaultHistoryLimit = 20

// ChatHistoryNode loads the recent messages of a conversation from the
// message store and emits them as a message list, typically feeding a
// chat node's history input.
type ChatHistoryNode struct {
	id     string
	limit  int
	store  ports.MessageStore
	tracer trace.Tracer
}

// ChatHistoryConfig bounds the history window.
type ChatHistoryConfig struct {
	// Limit is the maximum number of messages to load, newest kept.
	Limit int `yaml:"limit"`
}

// NewChatHistoryNode creates a ChatHistoryNode backed by the given
// store.
func NewChatHistoryNode(id string, limit int, store ports.MessageStore) (*ChatHistoryNode, error) {
	if id == "" {
		return nil, fmt.Errorf("chat history node id cannot be empty")
	}
	if store == nil {
		return nil, fmt.Errorf("chat history node %s requires a message store", id)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return &ChatHistoryNode{
		id:     id,
		limit:  limit,
		store:  store,
		tracer: otel.Tracer("chat-history-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (hn *ChatHistoryNode) ID() string { return hn.id }

// Name returns a human-readable name for logging.
func (hn *ChatHistoryNode) Name() string { return "ChatHistory(" + hn.id + ")" }

// InputPorts declares the required "conversation_id" port.
func (hn *ChatHistoryNode) InputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("conversation_id", domain.TypeString)}
}

// OutputPorts declares the "history" message list.
func (hn *ChatHistoryNode) OutputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("history", domain.TypeMessageList)}
}

// Execute loads the conversation window, oldest first.
func (hn *ChatHistoryNode) Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	ctx, span := hn.tracer.Start(ctx, "ChatHistoryNode.Execute",
		trace.WithAttributes(
			attribute.String("node.type", "chat_history"),
			attribute.String("node.id", hn.id),
			attribute.Int("config.limit", hn.limit),
		),
	)
	defer span.End()

	idValue, ok := inputs["conversation_id"]
	if !ok {
		err := fmt.Errorf("chat history node %s: required input not provided: conversation_id", hn.id)
		span.RecordError(err)
		return nil, err
	}
	conversationID, ok := idValue.AsString()
	if !ok {
		err := fmt.Errorf("chat history node %s: conversation_id is %s, want string", hn.id, idValue.Type())
		span.RecordError(err)
		return nil, err
	}

	msgs, err := hn.store.Recent(ctx, conversationID, hn.limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat history node %s: %w", hn.id, err)
	}

	span.SetAttributes(attribute.Int("history.length", len(msgs)))
	return map[string]domain.DataValue{"history": domain.MessageListValue(msgs)}, nil
}

// CreateChatHistoryNode creates a ChatHistoryNode from a configuration
// map. The registry injects the shared store under the "message_store"
// key.
//
// Supported config keys:
//   - "limit" (int): history window size, default 20
func CreateChatHistoryNode(id string, config map[string]any) (ports.Node, error) {
	store, _ := config["message_store"].(ports.MessageStore)
	delete(config, "message_store")

	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var cfg ChatHistoryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewChatHistoryNode(id, cfg.Limit, store)
}
