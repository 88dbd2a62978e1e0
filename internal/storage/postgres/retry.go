package postgres

import (
	"context"
	"time"
)

const (
	publishRetries = 3
	publishBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// withRetry runs fn up to maxRetries+1 times with capped exponential backoff.
// Snapshot publishes are idempotent, so rerunning a failed attempt is safe.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if delay < maxBackoff {
			delay *= 2
		}
	}
}
