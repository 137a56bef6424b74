package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/service"
)

var (
	// ErrBusy marks SQLite lock contention; it is the only error WithRetry retries.
	ErrBusy = errors.New("database busy")
	// ErrMaxRetries wraps the last error once every attempt has failed.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// backoff yields capped exponential delays.
type backoff struct {
	next, limit time.Duration
	factor      float64
}

func newBackoff(opts service.RetryOptions) *backoff {
	b := &backoff{next: opts.InitialDelay, limit: opts.MaxDelay, factor: opts.Multiplier}
	if b.next <= 0 {
		b.next = 50 * time.Millisecond
	}
	if b.limit <= 0 {
		b.limit = 2 * time.Second
	}
	if b.factor <= 1 {
		b.factor = 2
	}
	return b
}

func (b *backoff) wait() time.Duration {
	d := b.next
	b.next = min(time.Duration(float64(b.next)*b.factor), b.limit)
	return d
}

// WithRetry runs op until it succeeds, fails with an error IsRetryable
// rejects, or exhausts opts.MaxAttempts (3 when unset). Cancelling ctx stops
// the wait between attempts.
func WithRetry(ctx context.Context, op func() error, opts service.RetryOptions) error {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delays := newBackoff(opts)

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempts, err)
		}

		delay := delays.wait()
		slog.Warn("Database busy, retrying", "attempt", attempt, "max_attempts", attempts, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
