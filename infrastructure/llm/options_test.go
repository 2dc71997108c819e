package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestOptions(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
		want requestOptions
	}{
		{
			name: "defaults",
			opts: map[string]any{},
			want: requestOptions{model: "base-model", maxTokens: defaultMaxTokens},
		},
		{
			name: "model override",
			opts: map[string]any{"model": "bigger-model"},
			want: requestOptions{model: "bigger-model", maxTokens: defaultMaxTokens},
		},
		{
			name: "empty model override ignored",
			opts: map[string]any{"model": ""},
			want: requestOptions{model: "base-model", maxTokens: defaultMaxTokens},
		},
		{
			name: "system prompt",
			opts: map[string]any{"system": "be terse"},
			want: requestOptions{model: "base-model", system: "be terse", maxTokens: defaultMaxTokens},
		},
		{
			name: "max tokens int",
			opts: map[string]any{"max_tokens": 256},
			want: requestOptions{model: "base-model", maxTokens: 256},
		},
		{
			name: "max tokens int64",
			opts: map[string]any{"max_tokens": int64(512)},
			want: requestOptions{model: "base-model", maxTokens: 512},
		},
		{
			name: "non-positive max tokens ignored",
			opts: map[string]any{"max_tokens": 0},
			want: requestOptions{model: "base-model", maxTokens: defaultMaxTokens},
		},
		{
			name: "unknown keys ignored",
			opts: map[string]any{"top_p": 0.9, "seed": 7},
			want: requestOptions{model: "base-model", maxTokens: defaultMaxTokens},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRequestOptions(tt.opts, "base-model")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRequestOptionsTemperature(t *testing.T) {
	got := parseRequestOptions(map[string]any{"temperature": 0.7}, "m")
	require.NotNil(t, got.temperature)
	assert.InDelta(t, 0.7, *got.temperature, 1e-9)

	// Whole-number temperatures may decode as int.
	got = parseRequestOptions(map[string]any{"temperature": 1}, "m")
	require.NotNil(t, got.temperature)
	assert.InDelta(t, 1.0, *got.temperature, 1e-9)

	// Out-of-range values are dropped rather than clamped.
	got = parseRequestOptions(map[string]any{"temperature": 3.5}, "m")
	assert.Nil(t, got.temperature)

	got = parseRequestOptions(map[string]any{"temperature": -0.1}, "m")
	assert.Nil(t, got.temperature)
}
