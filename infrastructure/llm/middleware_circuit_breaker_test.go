package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	core := &flakyCore{failures: 100, err: errors.New("down")}
	breaked := CircuitBreakerMiddleware(2, time.Minute)(core)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := breaked.DoRequest(ctx, nil, nil)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrCircuitOpen)
	}

	// Threshold reached: the next request fails fast without touching
	// the provider.
	_, err := breaked.DoRequest(ctx, nil, nil)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, core.callCount())
	assert.Equal(t, "flaky-core", breaked.GetModel())
}

func TestCircuitBreakerClosesAfterSuccessfulProbe(t *testing.T) {
	core := &flakyCore{failures: 2, err: errors.New("down")}
	breaked := CircuitBreakerMiddleware(2, 50*time.Millisecond)(core)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := breaked.DoRequest(ctx, nil, nil)
		require.Error(t, err)
	}
	time.Sleep(100 * time.Millisecond)

	// The cooldown expired, so the probe reaches the now-healthy
	// provider and recloses the circuit.
	response, err := breaked.DoRequest(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", response)

	_, err = breaked.DoRequest(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, core.callCount())
}

func TestCircuitBreakerReopensOnFailedProbe(t *testing.T) {
	core := &flakyCore{failures: 100, err: errors.New("down")}
	breaked := CircuitBreakerMiddleware(2, 50*time.Millisecond)(core)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := breaked.DoRequest(ctx, nil, nil)
		require.Error(t, err)
	}
	time.Sleep(100 * time.Millisecond)

	_, err := breaked.DoRequest(ctx, nil, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCircuitOpen, "probe reaches the provider")

	_, err = breaked.DoRequest(ctx, nil, nil)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, core.callCount())
}

func TestCircuitBreakerStateTransitions(t *testing.T) {
	cb := NewCircuitBreaker(1, 50*time.Millisecond)
	assert.Equal(t, StateClosed, cb.State())

	require.Error(t, cb.Call(func() error { return errors.New("boom") }))
	assert.Equal(t, StateOpen, cb.State())
	require.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}
