package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ridge/keystone/test"
	"github.com/stretchr/testify/require"
)

var fast = Config{Min: time.Microsecond, Max: 10 * time.Microsecond, Scale: 2}

func TestDo(t *testing.T) {
	ctx := test.Context(t)

	count := 0
	err := Do(ctx, fast, func() error {
		count++
		if count == 10 {
			return errors.New("ten")
		}
		return Retriable(fmt.Errorf("%d", count))
	})
	require.EqualError(t, err, "ten")
	require.Equal(t, 10, count)

	count = 0
	require.NoError(t, Do(ctx, fast, func() error {
		count++
		if count < 3 {
			return Retriable(errors.New("again"))
		}
		return nil
	}))
	require.Equal(t, 3, count)
}

func TestDoAttempts(t *testing.T) {
	config := fast
	config.Attempts = 3
	errAgain := errors.New("again")

	count := 0
	err := Do(test.Context(t), config, func() error {
		count++
		return Retriable(errAgain)
	})
	require.Equal(t, errAgain, err)
	require.Equal(t, 3, count)
}

func TestDoCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(test.Context(t))
	cancel()
	err := Do(ctx, Config{Min: time.Hour, Max: time.Hour, Scale: 1}, func() error {
		return Retriable(errors.New("again"))
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	backoff := NewBackoff(Config{Min: time.Minute, Max: 10 * time.Minute, Scale: 2})
	for _, expected := range []time.Duration{1, 2, 4, 8, 10, 10} {
		require.Equal(t, expected*time.Minute, backoff.Next())
	}
}
