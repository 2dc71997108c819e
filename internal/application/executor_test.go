package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-loom/internal/domain"
)

func TestExecutorRunLinearGraph(t *testing.T) {
	g := NewNodeGraph("linear")
	src := newStub("src", nil, []string{"out"})
	mid := newStub("mid", []string{"in"}, []string{"out"})
	sink := newStub("sink", []string{"in"}, nil)
	require.NoError(t, g.AddNode(src))
	require.NoError(t, g.AddNode(mid))
	require.NoError(t, g.AddNode(sink))
	require.NoError(t, g.AddEdge(edge("src", "out", "mid", "in")))
	require.NoError(t, g.AddEdge(edge("mid", "out", "sink", "in")))

	pool, err := NewExecutor(g).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.runCount())
	assert.Equal(t, 1, mid.runCount())
	assert.Equal(t, 1, sink.runCount())

	// mid received src's output through its edge.
	in, _ := mid.lastSeen["in"].AsString()
	assert.Equal(t, "src:out", in)

	v, ok := pool.Get("mid.out")
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "mid:out", s)
}

func TestExecutorRunRejectsInvalidGraph(t *testing.T) {
	g := NewNodeGraph("invalid")
	require.NoError(t, g.AddNode(newStub("a", []string{"in"}, []string{"out"})))
	require.NoError(t, g.AddNode(newStub("b", []string{"in"}, []string{"out"})))
	require.NoError(t, g.AddEdge(edge("a", "out", "b", "in")))
	require.NoError(t, g.AddEdge(edge("b", "out", "a", "in")))

	_, err := NewExecutor(g).Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrGraphInvalid)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestExecutorBaseLayerErrorAbortsRun(t *testing.T) {
	g := NewNodeGraph("failing")
	src := newStub("src", nil, []string{"out"})
	boom := newStub("boom", []string{"in"}, []string{"out"})
	boom.execute = func(context.Context, map[string]domain.DataValue) (map[string]domain.DataValue, error) {
		return nil, errors.New("kaput")
	}
	after := newStub("after", []string{"in"}, nil)
	require.NoError(t, g.AddNode(src))
	require.NoError(t, g.AddNode(boom))
	require.NoError(t, g.AddNode(after))
	require.NoError(t, g.AddEdge(edge("src", "out", "boom", "in")))
	require.NoError(t, g.AddEdge(edge("boom", "out", "after", "in")))

	pool, err := NewExecutor(g).Run(context.Background())

	var execErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "boom", execErr.NodeID)
	assert.Equal(t, 0, after.runCount(), "downstream of the failure must not run")

	// Values written before the failure stay readable for diagnostics.
	_, ok := pool.Get("src.out")
	assert.True(t, ok)
}

func TestExecutorRejectsUndeclaredOutput(t *testing.T) {
	g := NewNodeGraph("sneaky")
	bad := newStub("bad", nil, []string{"out"})
	bad.execute = func(context.Context, map[string]domain.DataValue) (map[string]domain.DataValue, error) {
		return map[string]domain.DataValue{"surprise": domain.StringValue("x")}, nil
	}
	require.NoError(t, g.AddNode(bad))

	_, err := NewExecutor(g).Run(context.Background())
	var execErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "undeclared output")
}

func TestExecutorRejectsWrongOutputType(t *testing.T) {
	g := NewNodeGraph("wrong-type")
	bad := newStub("bad", nil, []string{"out"})
	bad.execute = func(context.Context, map[string]domain.DataValue) (map[string]domain.DataValue, error) {
		return map[string]domain.DataValue{"out": domain.IntValue(1)}, nil
	}
	require.NoError(t, g.AddNode(bad))

	_, err := NewExecutor(g).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects string")
}

// A producing node that omits an output consumed by a required
// downstream input surfaces the unbound-port condition at runtime,
// attributed to the consumer.
func TestExecutorMissingOutputForRequiredConsumer(t *testing.T) {
	g := NewNodeGraph("partial")
	src := newStub("src", nil, []string{"out"})
	src.execute = func(context.Context, map[string]domain.DataValue) (map[string]domain.DataValue, error) {
		return map[string]domain.DataValue{}, nil
	}
	sink := newStub("sink", []string{"in"}, nil)
	require.NoError(t, g.AddNode(src))
	require.NoError(t, g.AddNode(sink))
	require.NoError(t, g.AddEdge(edge("src", "out", "sink", "in")))

	_, err := NewExecutor(g).Run(context.Background())
	var unbound *domain.UnboundPortError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "sink", unbound.NodeID)
	assert.Equal(t, "in", unbound.Port)
	assert.Equal(t, 0, sink.runCount())
}

func TestExecutorLegacyAutoBind(t *testing.T) {
	g := NewNodeGraph("legacy")
	// No edges: dst's "value" input binds to src's "value" output by name.
	src := newStub("src", nil, []string{"value"})
	dst := newStub("dst", []string{"value"}, nil)
	require.NoError(t, g.AddNode(src))
	require.NoError(t, g.AddNode(dst))

	pool, err := NewExecutor(g).Run(context.Background())
	require.NoError(t, err)

	got, _ := dst.lastSeen["value"].AsString()
	assert.Equal(t, "src:value", got)

	// Legacy mode stores both the qualified key and the bare alias.
	_, ok := pool.Get("src.value")
	assert.True(t, ok)
	_, ok = pool.Get("value")
	assert.True(t, ok)
}

func TestExecutorLegacyTypeGuard(t *testing.T) {
	g := NewNodeGraph("legacy-mismatch")
	src := &stubNode{
		id:      "src",
		outputs: []domain.Port{domain.NewPort("value", domain.TypeInt)},
		emit:    map[string]domain.DataValue{"value": domain.IntValue(5)},
	}
	dst := &stubNode{id: "dst", inputs: []domain.Port{domain.NewPort("value", domain.TypeString)}}
	require.NoError(t, g.AddNode(src))
	require.NoError(t, g.AddNode(dst))

	// Name matching satisfies static validation; the runtime type guard
	// catches the mismatch when inputs are gathered.
	_, err := NewExecutor(g).Run(context.Background())
	var execErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "dst", execErr.NodeID)
	assert.Equal(t, 0, dst.runCount())
}

func TestExecutorCancelledContext(t *testing.T) {
	g := NewNodeGraph("cancelled")
	require.NoError(t, g.AddNode(newStub("a", nil, []string{"out"})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(g).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
