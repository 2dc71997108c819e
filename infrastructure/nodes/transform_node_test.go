package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-loom/internal/domain"
)

func runTransform(t *testing.T, cfg TransformConfig, input string) (string, error) {
	t.Helper()
	node, err := NewTransformNode("t1", cfg)
	require.NoError(t, err)

	out, err := node.Execute(context.Background(), map[string]domain.DataValue{
		"input": domain.StringValue(input),
	})
	if err != nil {
		return "", err
	}
	s, ok := out["output"].AsString()
	require.True(t, ok)
	return s, nil
}

func TestTransformNodeOperations(t *testing.T) {
	tests := []struct {
		name   string
		config TransformConfig
		input  string
		want   string
	}{
		{
			name:   "uppercase",
			config: TransformConfig{Operation: OpUppercase},
			input:  "hello world",
			want:   "HELLO WORLD",
		},
		{
			name:   "uppercase handles non-ascii",
			config: TransformConfig{Operation: OpUppercase},
			input:  "größe",
			want:   "GRÖSSE",
		},
		{
			name:   "lowercase",
			config: TransformConfig{Operation: OpLowercase},
			input:  "HELLO",
			want:   "hello",
		},
		{
			name:   "title",
			config: TransformConfig{Operation: OpTitle},
			input:  "hello world",
			want:   "Hello World",
		},
		{
			name:   "trim",
			config: TransformConfig{Operation: OpTrim},
			input:  "  padded\t\n",
			want:   "padded",
		},
		{
			name:   "reverse respects runes",
			config: TransformConfig{Operation: OpReverse},
			input:  "héllo",
			want:   "olléh",
		},
		{
			name:   "template",
			config: TransformConfig{Operation: OpTemplate, Template: "<<{input}>> and {input}"},
			input:  "x",
			want:   "<<x>> and x",
		},
		{
			name:   "prefix and suffix wrap the result",
			config: TransformConfig{Operation: OpUppercase, Prefix: "[", Suffix: "]"},
			input:  "mid",
			want:   "[MID]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runTransform(t, tt.config, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTransformNodeValidation(t *testing.T) {
	_, err := NewTransformNode("", TransformConfig{Operation: OpTrim})
	assert.ErrorIs(t, err, ErrEmptyNodeID)

	_, err = NewTransformNode("t1", TransformConfig{Operation: "rot13"})
	assert.ErrorContains(t, err, "configuration validation failed")

	_, err = NewTransformNode("t1", TransformConfig{Operation: OpTemplate, Template: "no placeholder"})
	assert.ErrorContains(t, err, "{input}")
}

func TestTransformNodeExecuteErrors(t *testing.T) {
	node, err := NewTransformNode("t1", TransformConfig{Operation: OpTrim})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), map[string]domain.DataValue{})
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = node.Execute(context.Background(), map[string]domain.DataValue{
		"input": domain.IntValue(7),
	})
	assert.ErrorIs(t, err, ErrWrongInputType)
}

func TestCreateTransformNode(t *testing.T) {
	node, err := CreateTransformNode("t1", map[string]any{
		"operation": "template",
		"template":  "hi {input}",
	})
	require.NoError(t, err)

	out, err := node.Execute(context.Background(), map[string]domain.DataValue{
		"input": domain.StringValue("there"),
	})
	require.NoError(t, err)
	s, _ := out["output"].AsString()
	assert.Equal(t, "hi there", s)

	_, err = CreateTransformNode("t2", map[string]any{"operation": "frobnicate"})
	assert.Error(t, err)
}
