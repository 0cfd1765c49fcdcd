package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn under its own deadline d (no deadline when d <= 0).
// A deadline expiry is reported as ErrTimeout naming op.
func WithTimeout[T any](
	ctx context.Context, d time.Duration, op string, fn func(context.Context) (T, error),
) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	v, err := fn(ctx)
	if err != nil {
		var zero T
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			return zero, fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
		}
		return zero, err
	}
	return v, nil
}

// RunWithTimeout is WithTimeout for calls that return only an error.
func RunWithTimeout(ctx context.Context, d time.Duration, op string, fn func(context.Context) error) error {
	_, err := WithTimeout(ctx, d, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
