package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "test", fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still broken")
	calls := 0
	err := Retry(context.Background(), "test", fastPolicy(3), func(context.Context) error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "test", RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Hour})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := b.Do(func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, StateOpen, b.State())

	err := b.Do(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 2, ResetTimeout: 5 * time.Millisecond})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_ = b.Do(func() error { return boom })
	}
	require.Equal(t, StateOpen, b.State())

	time.Sleep(10 * time.Millisecond)
	err := b.Do(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 2, ResetTimeout: 5 * time.Millisecond})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_ = b.Do(func() error { return boom })
	}
	time.Sleep(10 * time.Millisecond)

	err := b.Do(func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerClosedResetsOnSuccess(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Hour})
	boom := errors.New("boom")

	_ = b.Do(func() error { return boom })
	_ = b.Do(func() error { return boom })
	require.NoError(t, b.Do(func() error { return nil }))

	// The failure count reset, so two more failures stay under threshold.
	_ = b.Do(func() error { return boom })
	_ = b.Do(func() error { return boom })
	assert.Equal(t, StateClosed, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
