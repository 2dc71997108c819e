package store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.Node = (*MessageLookupNode)(nil)

// MessageLookupNode resolves a message id against the message store and
// emits the message's content and sender, plus a "found" flag so
// downstream logic can branch on missing messages instead of failing.
type MessageLookupNode struct {
	id     string
	store  ports.MessageStore
	tracer trace.Tracer
}

// NewMessageLookupNode creates a MessageLookupNode backed by the given
// store.
func NewMessageLookupNode(id string, store ports.MessageStore) (*MessageLookupNode, error) {
	if id == "" {
		return nil, fmt.Errorf("message lookup node id cannot be empty")
	}
	if store == nil {
		return nil, fmt.Errorf("message lookup node %s requires a message store", id)
	}

	return &MessageLookupNode{
		id:     id,
		store:  store,
		tracer: otel.Tracer("message-lookup-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (mn *MessageLookupNode) ID() string { return mn.id }

// Name returns a human-readable name for logging.
func (mn *MessageLookupNode) Name() string { return "MessageLookup(" + mn.id + ")" }

// InputPorts declares the required "message_id" port.
func (mn *MessageLookupNode) InputPorts() []domain.Port {
	return []domain.Port{domain.NewPort("message_id", domain.TypeString)}
}

// OutputPorts declares the resolved message fields.
func (mn *MessageLookupNode) OutputPorts() []domain.Port {
	return []domain.Port{
		domain.NewPort("content", domain.TypeString),
		domain.NewPort("sender", domain.TypeString),
		domain.NewPort("found", domain.TypeBool),
	}
}

// Execute looks the message up. A missing message is not an error; it
// yields empty fields and found=false.
func (mn *MessageLookupNode) Execute(ctx context.Context, inputs map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	ctx, span := mn.tracer.Start(ctx, "MessageLookupNode.Execute",
		trace.WithAttributes(
			attribute.String("node.type", "message_lookup"),
			attribute.String("node.id", mn.id),
		),
	)
	defer span.End()

	idValue, ok := inputs["message_id"]
	if !ok {
		err := fmt.Errorf("message lookup node %s: required input not provided: message_id", mn.id)
		span.RecordError(err)
		return nil, err
	}
	messageID, ok := idValue.AsString()
	if !ok {
		err := fmt.Errorf("message lookup node %s: message_id is %s, want string", mn.id, idValue.Type())
		span.RecordError(err)
		return nil, err
	}

	msg, found, err := mn.store.Get(ctx, messageID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("message lookup node %s: %w", mn.id, err)
	}

	span.SetAttributes(attribute.Bool("message.found", found))
	return map[string]domain.DataValue{
		"content": domain.StringValue(msg.Content),
		"sender":  domain.StringValue(msg.Sender),
		"found":   domain.BoolValue(found),
	}, nil
}

// CreateMessageLookupNode creates a MessageLookupNode from a
// configuration map. The registry injects the shared store under the
// "message_store" key.
func CreateMessageLookupNode(id string, config map[string]any) (ports.Node, error) {
	store, _ := config["message_store"].(ports.MessageStore)
	return NewMessageLookupNode(id, store)
}
