package botgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-loom/infrastructure/store"
)

var upgrader = websocket.Upgrader{}

// newGatewayServer starts a WebSocket server whose handler runs script
// against each accepted connection, then closes it normally.
func newGatewayServer(t *testing.T, script func(t *testing.T, r *http.Request, conn *websocket.Conn)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		script(t, r, conn)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		// Wait for the peer's close response so the frames above flush.
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func sendText(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func newTestAdapter(t *testing.T, config AdapterConfig) (*AdapterNode, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })

	node, err := NewAdapterNode("gateway", config, mem)
	require.NoError(t, err)
	return node, mem
}

func TestAdapterNodeReceivesAndPersistsMessages(t *testing.T) {
	url := newGatewayServer(t, func(t *testing.T, _ *http.Request, conn *websocket.Conn) {
		// Heartbeats carry no message_type and must be filtered.
		sendText(t, conn, `{"post_type": "meta_event", "time": 1750000000}`)
		sendText(t, conn, `{"message_id": 101, "message_type": "private", "user_id": 42, "raw_message": "hello bot", "time": 1750000001}`)
		sendText(t, conn, `{"message_id": 102, "message_type": "group", "user_id": 42, "group_id": 900, "raw_message": "hi all", "time": 1750000002}`)
	})

	node, mem := newTestAdapter(t, AdapterConfig{URL: url})
	ctx := context.Background()
	require.NoError(t, node.OnStart(ctx, nil))

	out, ok, err := node.OnUpdate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	id, _ := out["message_id"].AsString()
	kind, _ := out["message_type"].AsString()
	convID, _ := out["conversation_id"].AsString()
	content, _ := out["content"].AsString()
	assert.Equal(t, "101", id)
	assert.Equal(t, "private", kind)
	assert.Equal(t, "42", convID, "private chats use the sender id as conversation")
	assert.Equal(t, "hello bot", content)

	out, ok, err = node.OnUpdate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	convID, _ = out["conversation_id"].AsString()
	assert.Equal(t, "900", convID, "group chats use the group id as conversation")

	// Normal server close reports exhaustion, not an error.
	_, ok, err = node.OnUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, node.OnCleanup(ctx))

	// Both messages were persisted for later history lookups.
	msg, found, err := mem.Get(ctx, "101")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello bot", msg.Content)
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, time.Unix(1750000001, 0).UTC(), msg.SentAt)

	msgs, err := mem.Recent(ctx, "900", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi all", msgs[0].Content)
}

func TestAdapterNodeSendsBearerToken(t *testing.T) {
	authCh := make(chan string, 1)
	url := newGatewayServer(t, func(t *testing.T, r *http.Request, conn *websocket.Conn) {
		authCh <- r.Header.Get("Authorization")
	})

	node, _ := newTestAdapter(t, AdapterConfig{URL: url, Token: "s3cret"})
	ctx := context.Background()
	require.NoError(t, node.OnStart(ctx, nil))

	_, ok, err := node.OnUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, node.OnCleanup(ctx))

	assert.Equal(t, "Bearer s3cret", <-authCh)
}

func TestAdapterNodeFiltersOwnMessages(t *testing.T) {
	url := newGatewayServer(t, func(t *testing.T, _ *http.Request, conn *websocket.Conn) {
		sendText(t, conn, `{"message_id": 1, "message_type": "private", "user_id": 7, "raw_message": "my own echo"}`)
		sendText(t, conn, `{"message_id": 2, "message_type": "private", "user_id": 8, "raw_message": "from someone else"}`)
	})

	node, _ := newTestAdapter(t, AdapterConfig{URL: url, BotID: "7"})
	ctx := context.Background()
	require.NoError(t, node.OnStart(ctx, nil))

	out, ok, err := node.OnUpdate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	content, _ := out["content"].AsString()
	assert.Equal(t, "from someone else", content)

	_, ok, _ = node.OnUpdate(ctx)
	assert.False(t, ok)
	require.NoError(t, node.OnCleanup(ctx))
}

func TestAdapterNodeOnStartDialFailure(t *testing.T) {
	node, _ := newTestAdapter(t, AdapterConfig{URL: "ws://127.0.0.1:1/nowhere"})

	err := node.OnStart(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

func TestAdapterNodeOnUpdateObservesCancellation(t *testing.T) {
	block := make(chan struct{})
	url := newGatewayServer(t, func(t *testing.T, _ *http.Request, conn *websocket.Conn) {
		<-block
	})
	defer close(block)

	node, _ := newTestAdapter(t, AdapterConfig{URL: url})
	require.NoError(t, node.OnStart(context.Background(), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok, err := node.OnUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, node.OnCleanup(context.Background()))
}

func TestAdapterNodeHasNoOneShotBody(t *testing.T) {
	node, _ := newTestAdapter(t, AdapterConfig{URL: "ws://example.com/ws"})
	_, err := node.Execute(context.Background(), nil)
	assert.ErrorContains(t, err, "event producer")
}

func TestNewAdapterNodeValidation(t *testing.T) {
	mem := store.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })

	_, err := NewAdapterNode("", AdapterConfig{URL: "ws://x"}, mem)
	assert.ErrorContains(t, err, "id cannot be empty")

	_, err = NewAdapterNode("g", AdapterConfig{}, mem)
	assert.ErrorContains(t, err, "configuration validation failed")

	_, err = NewAdapterNode("g", AdapterConfig{URL: "not a uri"}, mem)
	assert.ErrorContains(t, err, "configuration validation failed")

	_, err = NewAdapterNode("g", AdapterConfig{URL: "ws://x"}, nil)
	assert.ErrorContains(t, err, "requires a message store")
}

func TestCreateAdapterNode(t *testing.T) {
	mem := store.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })

	node, err := CreateAdapterNode("gateway", map[string]any{
		"message_store": mem,
		"url":           "ws://example.com/ws",
		"bot_id":        "7",
	})
	require.NoError(t, err)
	assert.Equal(t, "gateway", node.ID())
	assert.Len(t, node.OutputPorts(), 5)

	_, err = CreateAdapterNode("gateway", map[string]any{
		"message_store": mem,
		"url":           "not a uri",
	})
	assert.ErrorContains(t, err, "configuration validation failed")
}
