package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		Multiplier:     2,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := Config{
		InitialBackoff: 500 * time.Millisecond,
		Multiplier:     2,
		MaxBackoff:     8 * time.Second,
	}

	expected := []time.Duration{
		500 * time.Millisecond,
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
	}
	for n, want := range expected {
		assert.Equal(t, want, cfg.Backoff(n), "attempt %d", n)
	}

	// Past the ceiling the delay stays clamped.
	assert.Equal(t, 8*time.Second, cfg.Backoff(10))
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), "op", fastConfig(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	opErr := errors.New("always failing")
	calls := 0

	_, err := Do(context.Background(), "op", fastConfig(2), func(context.Context) (int, error) {
		calls++
		return 0, opErr
	}, nil)

	require.ErrorIs(t, err, opErr)
	assert.Equal(t, 3, calls, "maxRetries=2 means exactly 3 attempts")
}

func TestDoRecoversMidway(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), "op", fastConfig(3), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestDoAbortDecision(t *testing.T) {
	opErr := errors.New("fatal")
	calls := 0

	_, err := Do(context.Background(), "op", fastConfig(5), func(context.Context) (int, error) {
		calls++
		return 0, opErr
	}, func(name string, err error, attempt int) Decision {
		return Abort
	})

	require.ErrorIs(t, err, opErr)
	assert.Equal(t, 1, calls, "abort on first failure must not retry")
}

func TestDoSkipDecision(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), "op", fastConfig(5), func(context.Context) (string, error) {
		calls++
		return "", errors.New("not worth retrying")
	}, func(name string, err error, attempt int) Decision {
		return Skip
	})

	require.NoError(t, err, "skip returns no error")
	assert.Empty(t, result)
	assert.Equal(t, 1, calls)
}

func TestDoDecisionReceivesAttemptNumber(t *testing.T) {
	var attempts []int
	_, _ = Do(context.Background(), "op", fastConfig(2), func(context.Context) (int, error) {
		return 0, errors.New("nope")
	}, func(name string, err error, attempt int) Decision {
		attempts = append(attempts, attempt)
		return Retry
	})

	// The callback only fires on attempts that still have retries left.
	assert.Equal(t, []int{0, 1}, attempts)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, "op", Config{
		MaxRetries:     3,
		InitialBackoff: time.Minute,
		Multiplier:     2,
		MaxBackoff:     time.Minute,
	}, func(context.Context) (int, error) {
		return 0, errors.New("fail then wait")
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
}
