// Package retry repeats operations that fail with transient errors
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/ridge/keystone/tlog"
	"go.uber.org/zap"
)

// Config defines the delays between attempts
type Config struct {
	// Min is the delay before the first retry
	Min time.Duration

	// Max caps the delay
	Max time.Duration

	// Scale multiplies the delay after each retry
	Scale float64

	// Attempts is the maximum number of attempts; 0 = unlimited
	Attempts int
}

// Default is suitable for retrying conflicting transactions
var Default = Config{
	Min:      time.Millisecond,
	Max:      100 * time.Millisecond,
	Scale:    2,
	Attempts: 10,
}

// Backoff yields exponentially growing delays
type Backoff struct {
	config  Config
	current time.Duration
}

// NewBackoff creates a backoff starting at config.Min
func NewBackoff(config Config) *Backoff {
	return &Backoff{config: config, current: config.Min}
}

// Next returns the delay to wait and grows the next one
func (b *Backoff) Next() time.Duration {
	delay := b.current
	b.current = time.Duration(float64(b.current) * b.config.Scale)
	if b.current > b.config.Max {
		b.current = b.config.Max
	}
	return delay
}

// errRetriable marks an error as transient
type errRetriable struct {
	err error
}

func (r errRetriable) Error() string {
	return r.err.Error()
}

func (r errRetriable) Unwrap() error {
	return r.err
}

// Retriable wraps an error to tell Do to try again. Returns nil if err is nil.
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return errRetriable{err: err}
}

// Do calls f until it returns nil or an error not wrapped with Retriable,
// the attempts are exhausted or the context is closed. The error returned is
// unwrapped.
func Do(ctx context.Context, config Config, f func() error) error {
	startedAt := time.Now()
	backoff := NewBackoff(config)
	for attempt := 1; ; attempt++ {
		var r errRetriable
		err := f()
		if !errors.As(err, &r) {
			if attempt > 1 && err == nil {
				tlog.Get(ctx).Debug("Retry succeeded", zap.Int("attempts", attempt), zap.Duration("duration", time.Since(startedAt)))
			}
			return err
		}
		if config.Attempts != 0 && attempt >= config.Attempts {
			tlog.Get(ctx).Debug("Retry failed", zap.Int("attempts", attempt), zap.Error(r.err))
			return r.err
		}
		if err := Sleep(ctx, backoff.Next()); err != nil {
			return err
		}
	}
}

// Sleep waits for the duration to elapse or the context to close, whichever
// is sooner
func Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
