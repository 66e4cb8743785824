// Package retry provides a small bounded-retry helper with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

// Do runs op up to MaxAttempts times, doubling the backoff between attempts.
// Returns the first success, or the last error wrapped with the attempt count.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	backoff := p.InitialBackoff

	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		if attempt == p.MaxAttempts {
			var zero T
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}
