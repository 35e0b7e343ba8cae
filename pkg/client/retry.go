package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Backoff decides how long to wait before retry attempt n (1-based) of a
// rate-limited request. Wait blocks until the delay has elapsed or ctx is
// done; tests substitute a no-op implementation so retries run instantly.
type Backoff interface {
	Wait(ctx context.Context, attempt int) error
}

// BackoffFunc adapts a function to the Backoff interface.
type BackoffFunc func(ctx context.Context, attempt int) error

// Wait implements Backoff.
func (f BackoffFunc) Wait(ctx context.Context, attempt int) error {
	return f(ctx, attempt)
}

// ExponentialBackoff waits Initial * Multiplier^(attempt-1), capped at Max,
// with ±20% jitter to avoid synchronized retries across processes. The sleep
// is cancellable through the context.
type ExponentialBackoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Wait implements Backoff.
func (b *ExponentialBackoff) Wait(ctx context.Context, attempt int) error {
	if attempt < 1 {
		attempt = 1
	}

	d := float64(b.Initial)
	for i := 1; i < attempt; i++ {
		d *= b.Multiplier
		if d >= float64(b.Max) {
			d = float64(b.Max)
			break
		}
	}
	delay := time.Duration(d)
	if delay > b.Max {
		delay = b.Max
	}

	// ±20% jitter.
	delay = time.Duration(float64(delay) * (0.8 + rand.Float64()*0.4))

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(delay):
		return nil
	}
}
