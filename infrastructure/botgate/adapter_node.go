// Package botgate connects a dataflow graph to a chat bot gateway over
// WebSocket, exposing incoming messages as an event producer node.
package botgate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.EventProducer = (*AdapterNode)(nil)

// handshakeTimeout bounds the WebSocket dial during OnStart.
const handshakeTimeout = 10 * time.Second

// Package-level validator instance for configuration validation.
var validate = validator.New()

// AdapterNode is an event producer that receives chat messages from a
// bot gateway over WebSocket. Each incoming message event becomes one
// tick of the downstream subgraph, and is persisted to the message
// store so history nodes can recall it later.
type AdapterNode struct {
	id     string
	config AdapterConfig
	store  ports.MessageStore
	tracer trace.Tracer

	conn   *websocket.Conn
	events chan readResult
	done   chan struct{}
	wg     sync.WaitGroup
}

// AdapterConfig holds the gateway connection settings.
type AdapterConfig struct {
	// URL is the WebSocket endpoint of the bot gateway.
	URL string `yaml:"url" validate:"required,uri"`
	// Token authenticates with the gateway as a bearer credential.
	Token string `yaml:"token"`
	// BotID is this bot's own account id; messages it sent are skipped
	// to avoid feedback loops.
	BotID string `yaml:"bot_id"`
}

// readResult carries one decoded event or the reader's terminal error.
type readResult struct {
	event domain.MessageEvent
	err   error
}

// rawEvent is the gateway wire format. Non-message frames lack a
// message_type and are filtered out by the reader.
type rawEvent struct {
	MessageID   json.Number `json:"message_id"`
	MessageType string      `json:"message_type"`
	UserID      json.Number `json:"user_id"`
	GroupID     json.Number `json:"group_id"`
	RawMessage  string      `json:"raw_message"`
	Time        int64       `json:"time"`
}

// NewAdapterNode creates an AdapterNode with validated configuration.
func NewAdapterNode(id string, config AdapterConfig, store ports.MessageStore) (*AdapterNode, error) {
	if id == "" {
		return nil, fmt.Errorf("bot adapter node id cannot be empty")
	}
	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("bot adapter node %s: configuration validation failed: %w", id, err)
	}
	if store == nil {
		return nil, fmt.Errorf("bot adapter node %s requires a message store", id)
	}

	return &AdapterNode{
		id:     id,
		config: config,
		store:  store,
		tracer: otel.Tracer("bot-adapter-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (an *AdapterNode) ID() string { return an.id }

// Name returns a human-readable name for logging.
func (an *AdapterNode) Name() string { return "BotAdapter(" + an.id + ")" }

// InputPorts returns no ports; the adapter is driven by the gateway.
func (an *AdapterNode) InputPorts() []domain.Port { return nil }

// OutputPorts declares the per-message outputs.
func (an *AdapterNode) OutputPorts() []domain.Port {
	return []domain.Port{
		domain.NewPort("message_id", domain.TypeString).WithDescription("gateway message id"),
		domain.NewPort("message_type", domain.TypeString).WithDescription("group or private"),
		domain.NewPort("user_id", domain.TypeString).WithDescription("sender account id"),
		domain.NewPort("conversation_id", domain.TypeString).WithDescription("group id, or user id for private chats"),
		domain.NewPort("content", domain.TypeString).WithDescription("raw message text"),
	}
}

// Execute is not used for event producers; the lifecycle controller
// drives OnStart, OnUpdate, and OnCleanup instead.
func (an *AdapterNode) Execute(context.Context, map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	return nil, fmt.Errorf("bot adapter node %s is an event producer and has no one-shot body", an.id)
}

// OnStart dials the gateway and launches the reader goroutine. The
// reader owns the connection's read side; OnUpdate only consumes the
// channel it feeds, which keeps cancellation responsive even while a
// read is blocked.
func (an *AdapterNode) OnStart(ctx context.Context, _ map[string]domain.DataValue) error {
	ctx, span := an.tracer.Start(ctx, "BotAdapterNode.OnStart",
		trace.WithAttributes(
			attribute.String("node.id", an.id),
			attribute.String("gateway.url", an.config.URL),
		),
	)
	defer span.End()

	header := http.Header{}
	if an.config.Token != "" {
		header.Set("Authorization", "Bearer "+an.config.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, an.config.URL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		span.RecordError(err)
		return fmt.Errorf("bot adapter node %s: dial %s failed (status %d): %w", an.id, an.config.URL, status, err)
	}

	an.conn = conn
	an.events = make(chan readResult)
	an.done = make(chan struct{})
	an.wg.Add(1)
	go an.readLoop()
	return nil
}

// readLoop reads frames until the connection closes, decoding message
// events onto the channel. It runs from OnStart to OnCleanup.
func (an *AdapterNode) readLoop() {
	defer an.wg.Done()
	defer close(an.events)

	for {
		kind, data, err := an.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			select {
			case an.events <- readResult{err: err}:
			case <-an.done:
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		event, ok := an.decodeEvent(data)
		if !ok {
			continue
		}
		select {
		case an.events <- readResult{event: event}:
		case <-an.done:
			return
		}
	}
}

// decodeEvent parses a frame, filtering heartbeats, non-message events,
// and the bot's own messages.
func (an *AdapterNode) decodeEvent(data []byte) (domain.MessageEvent, bool) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.MessageEvent{}, false
	}
	if raw.MessageType == "" {
		return domain.MessageEvent{}, false
	}

	userID := raw.UserID.String()
	if an.config.BotID != "" && userID == an.config.BotID {
		return domain.MessageEvent{}, false
	}

	conversationID := userID
	if raw.MessageType == "group" && raw.GroupID.String() != "" {
		conversationID = raw.GroupID.String()
	}

	receivedAt := time.Now().UTC()
	if raw.Time > 0 {
		receivedAt = time.Unix(raw.Time, 0).UTC()
	}

	return domain.MessageEvent{
		MessageID:      raw.MessageID.String(),
		Type:           raw.MessageType,
		UserID:         userID,
		ConversationID: conversationID,
		Content:        raw.RawMessage,
		ReceivedAt:     receivedAt,
	}, true
}

// OnUpdate waits for the next decoded message, persists it, and emits
// the per-message outputs. A closed connection reports exhaustion; a
// read failure is an error that terminates this producer's subtree.
func (an *AdapterNode) OnUpdate(ctx context.Context) (map[string]domain.DataValue, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, nil
	case result, open := <-an.events:
		if !open {
			return nil, false, nil
		}
		if result.err != nil {
			return nil, false, fmt.Errorf("bot adapter node %s: read failed: %w", an.id, result.err)
		}

		event := result.event
		if err := an.store.Store(ctx, event.AsMessage()); err != nil {
			return nil, false, fmt.Errorf("bot adapter node %s: store message: %w", an.id, err)
		}

		return map[string]domain.DataValue{
			"message_id":      domain.StringValue(event.MessageID),
			"message_type":    domain.StringValue(event.Type),
			"user_id":         domain.StringValue(event.UserID),
			"conversation_id": domain.StringValue(event.ConversationID),
			"content":         domain.StringValue(event.Content),
		}, true, nil
	}
}

// OnCleanup closes the connection and waits for the reader to drain.
func (an *AdapterNode) OnCleanup(ctx context.Context) error {
	_, span := an.tracer.Start(ctx, "BotAdapterNode.OnCleanup",
		trace.WithAttributes(attribute.String("node.id", an.id)),
	)
	defer span.End()

	if an.conn == nil {
		return nil
	}
	close(an.done)

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = an.conn.WriteControl(websocket.CloseMessage, msg, deadline)

	err := an.conn.Close()
	an.wg.Wait()
	an.conn = nil
	return err
}

// CreateAdapterNode creates an AdapterNode from a configuration map.
// The registry injects the shared store under the "message_store" key.
//
// Supported config keys:
//   - "url" (string): gateway WebSocket endpoint (required)
//   - "token" (string): bearer credential
//   - "bot_id" (string): own account id, for self-message filtering
func CreateAdapterNode(id string, config map[string]any) (ports.Node, error) {
	store, _ := config["message_store"].(ports.MessageStore)
	delete(config, "message_store")

	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var cfg AdapterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewAdapterNode(id, cfg, store)
}
