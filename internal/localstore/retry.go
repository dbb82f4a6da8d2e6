package localstore

import (
	"context"
	"time"
)

// RetryOptions bounds WithRetry.
type RetryOptions struct {
	Delay      time.Duration
	MaxRetries int
}

// DefaultRetryOptions suits reads that race a reset.
var DefaultRetryOptions = RetryOptions{Delay: 500 * time.Millisecond, MaxRetries: 3}

// WithRetry runs op, retrying only the closed-store condition up to
// MaxRetries times with a fixed delay. Any other error is returned at once.
func WithRetry[T any](ctx context.Context, opts RetryOptions, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !IsStoreClosed(err) || attempt >= opts.MaxRetries {
			return zero, err
		}
		if waitErr := waitWithContext(ctx, opts.Delay); waitErr != nil {
			return zero, waitErr
		}
	}
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
