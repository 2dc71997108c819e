package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-loom/internal/domain"
)

func TestChatHistoryNodeLoadsWindow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("m%d", i)
		require.NoError(t, s.Store(ctx, msgAt(id, "conv-a", id, base.Add(time.Duration(i)*time.Second))))
	}

	node, err := NewChatHistoryNode("hist", 3, s)
	require.NoError(t, err)

	out, err := node.Execute(ctx, map[string]domain.DataValue{
		"conversation_id": domain.StringValue("conv-a"),
	})
	require.NoError(t, err)

	history, ok := out["history"].AsMessageList()
	require.True(t, ok)
	require.Len(t, history, 3)
	// Newest three, in chronological order.
	assert.Equal(t, "m2", history[0].ID)
	assert.Equal(t, "m4", history[2].ID)
}

func TestChatHistoryNodeEmptyConversation(t *testing.T) {
	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	node, err := NewChatHistoryNode("hist", 0, s)
	require.NoError(t, err)

	out, err := node.Execute(context.Background(), map[string]domain.DataValue{
		"conversation_id": domain.StringValue("quiet"),
	})
	require.NoError(t, err)

	history, ok := out["history"].AsMessageList()
	require.True(t, ok)
	assert.Empty(t, history)
}

func TestChatHistoryNodeInputErrors(t *testing.T) {
	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	node, err := NewChatHistoryNode("hist", 10, s)
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), map[string]domain.DataValue{})
	assert.ErrorContains(t, err, "conversation_id")

	_, err = node.Execute(context.Background(), map[string]domain.DataValue{
		"conversation_id": domain.BoolValue(true),
	})
	assert.ErrorContains(t, err, "want string")
}

func TestNewChatHistoryNodeRequiresStore(t *testing.T) {
	_, err := NewChatHistoryNode("hist", 10, nil)
	assert.ErrorContains(t, err, "requires a message store")
}

func TestCreateChatHistoryNode(t *testing.T) {
	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	node, err := CreateChatHistoryNode("hist", map[string]any{
		"message_store": s,
		"limit":         7,
	})
	require.NoError(t, err)
	assert.Equal(t, "hist", node.ID())
}
