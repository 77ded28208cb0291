package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialBackoff: time.Millisecond}
}

func TestDoVoidSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := DoVoid(context.Background(), fastPolicy(3), nil, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVoidRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := DoVoid(context.Background(), fastPolicy(3), nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoVoidStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("constraint violation")
	classify := func(err error) Action {
		if errors.Is(err, permanent) {
			return Stop
		}
		return Retry
	}

	calls := 0
	err := DoVoid(context.Background(), fastPolicy(5), classify, func() error {
		calls++
		return permanent
	})

	assert.Equal(t, 1, calls)
	var permErr *PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.ErrorIs(t, err, permanent)
}

func TestDoVoidExhaustsAttempts(t *testing.T) {
	transient := errors.New("timeout")
	calls := 0
	err := DoVoid(context.Background(), fastPolicy(3), nil, func() error {
		calls++
		return transient
	})

	assert.Equal(t, 3, calls)
	require.Error(t, err)
	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestDoVoidHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DoVoid(ctx, Policy{MaxAttempts: 3, InitialBackoff: time.Minute}, nil, func() error {
		return errors.New("timeout")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoVoidReportsRetries(t *testing.T) {
	var attempts []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		attempts = append(attempts, attempt)
	}

	_ = DoVoid(context.Background(), p, nil, func() error {
		return errors.New("timeout")
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoReturnsValue(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), fastPolicy(3), nil, func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("timeout")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}
