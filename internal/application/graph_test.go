package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-loom/internal/domain"
)

func TestNodeGraphAddNode(t *testing.T) {
	g := NewNodeGraph("test")

	require.NoError(t, g.AddNode(newStub("a", nil, []string{"out"})))
	require.NoError(t, g.AddNode(newStub("b", []string{"out"}, nil)))

	err := g.AddNode(newStub("a", nil, nil))
	assert.ErrorIs(t, err, domain.ErrDuplicateNode)

	assert.Error(t, g.AddNode(nil))
	assert.Equal(t, []string{"a", "b"}, g.NodeIDs())
}

func TestNodeGraphAddEdge(t *testing.T) {
	g := NewNodeGraph("test")
	require.NoError(t, g.AddNode(newStub("src", nil, []string{"out"})))
	require.NoError(t, g.AddNode(newStub("dst", []string{"in"}, nil)))

	tests := []struct {
		name    string
		e       domain.Edge
		wantErr string
	}{
		{"valid", edge("src", "out", "dst", "in"), ""},
		{"missing source node", edge("ghost", "out", "dst", "in"), "does not exist"},
		{"missing target node", edge("src", "out", "ghost", "in"), "does not exist"},
		{"missing source port", edge("src", "nope", "dst", "in"), "no output port"},
		{"missing target port", edge("src", "out", "dst", "nope"), "no input port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddEdge(tt.e)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLegacyAutoBindDetection(t *testing.T) {
	g := NewNodeGraph("test")
	require.NoError(t, g.AddNode(newStub("src", nil, []string{"value"})))
	require.NoError(t, g.AddNode(newStub("dst", []string{"value"}, nil)))
	assert.True(t, g.LegacyAutoBind(), "no edges means legacy mode")

	require.NoError(t, g.AddEdge(edge("src", "value", "dst", "value")))
	assert.False(t, g.LegacyAutoBind())
}
