package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteClosedState(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{FailureThreshold: 3})

	err := cb.Execute(context.Background(), func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestOpensAfterFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		FailureThreshold: 3,
		Timeout:          time.Minute,
	})

	failing := errors.New("backend down")
	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), func() error { return failing })
		assert.ErrorIs(t, err, failing)
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{FailureThreshold: 3})

	failing := errors.New("flaky")
	for i := 0; i < 5; i++ {
		cb.Execute(context.Background(), func() error { return failing })
		cb.Execute(context.Background(), func() error { return nil })
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		MaxRequests:      2,
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
	})

	cb.Execute(context.Background(), func() error { return errors.New("down") })
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		MaxRequests:      2,
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
	})

	cb.Execute(context.Background(), func() error { return errors.New("down") })
	time.Sleep(20 * time.Millisecond)

	cb.Execute(context.Background(), func() error { return errors.New("still down") })
	assert.Equal(t, StateOpen, cb.State())
}
