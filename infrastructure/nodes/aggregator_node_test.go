package nodes

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-loom/internal/domain"
)

func floatInputs(values ...float64) map[string]domain.DataValue {
	inputs := make(map[string]domain.DataValue, len(values))
	for i, v := range values {
		inputs[fmt.Sprintf("input_%d", i+1)] = domain.FloatValue(v)
	}
	return inputs
}

func TestAggregatorNodeNumericOperations(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		values    []float64
		want      float64
	}{
		{name: "sum", operation: AggSum, values: []float64{1, 2, 3.5}, want: 6.5},
		{name: "mean", operation: AggMean, values: []float64{2, 4, 6}, want: 4},
		{name: "min", operation: AggMin, values: []float64{3, -1, 2}, want: -1},
		{name: "max", operation: AggMax, values: []float64{3, -1, 2}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewAggregatorNode("a1", AggregatorConfig{
				Operation:  tt.operation,
				InputCount: len(tt.values),
			})
			require.NoError(t, err)

			out, err := node.Execute(context.Background(), floatInputs(tt.values...))
			require.NoError(t, err)
			got, ok := out["output"].AsFloat()
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAggregatorNodeConcat(t *testing.T) {
	node, err := NewAggregatorNode("a1", AggregatorConfig{
		Operation:  AggConcat,
		InputCount: 3,
		Separator:  ", ",
	})
	require.NoError(t, err)

	out, err := node.Execute(context.Background(), map[string]domain.DataValue{
		"input_1": domain.StringValue("a"),
		"input_2": domain.StringValue("b"),
		"input_3": domain.StringValue("c"),
	})
	require.NoError(t, err)
	s, _ := out["output"].AsString()
	assert.Equal(t, "a, b, c", s)
}

func TestAggregatorNodePortTypesFollowOperation(t *testing.T) {
	concat, err := NewAggregatorNode("a1", AggregatorConfig{Operation: AggConcat, InputCount: 2})
	require.NoError(t, err)
	require.Len(t, concat.InputPorts(), 2)
	assert.Equal(t, "input_1", concat.InputPorts()[0].Name)
	assert.Equal(t, domain.TypeString, concat.InputPorts()[0].Type)
	assert.Equal(t, domain.TypeString, concat.OutputPorts()[0].Type)

	sum, err := NewAggregatorNode("a2", AggregatorConfig{Operation: AggSum, InputCount: 4})
	require.NoError(t, err)
	assert.Len(t, sum.InputPorts(), 4)
	assert.Equal(t, domain.TypeFloat, sum.InputPorts()[0].Type)
	assert.Equal(t, domain.TypeFloat, sum.OutputPorts()[0].Type)
}

func TestNewAggregatorNodeValidation(t *testing.T) {
	tests := []struct {
		name   string
		config AggregatorConfig
	}{
		{name: "unknown operation", config: AggregatorConfig{Operation: "median", InputCount: 2}},
		{name: "fan-in below minimum", config: AggregatorConfig{Operation: AggSum, InputCount: 1}},
		{name: "fan-in above maximum", config: AggregatorConfig{Operation: AggSum, InputCount: MaxAggregatorInputs + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregatorNode("a1", tt.config)
			assert.ErrorContains(t, err, "configuration validation failed")
		})
	}
}

func TestAggregatorNodeExecuteErrors(t *testing.T) {
	node, err := NewAggregatorNode("a1", AggregatorConfig{Operation: AggSum, InputCount: 3})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), floatInputs(1, 2))
	assert.ErrorIs(t, err, ErrMissingInput)

	inputs := floatInputs(1, 2)
	inputs["input_3"] = domain.StringValue("three")
	_, err = node.Execute(context.Background(), inputs)
	assert.ErrorIs(t, err, ErrWrongInputType)
}

func TestCreateAggregatorNode(t *testing.T) {
	node, err := CreateAggregatorNode("a1", map[string]any{
		"operation":   "mean",
		"input_count": 2,
	})
	require.NoError(t, err)

	out, err := node.Execute(context.Background(), floatInputs(1, 3))
	require.NoError(t, err)
	got, _ := out["output"].AsFloat()
	assert.InDelta(t, 2.0, got, 1e-9)
}
