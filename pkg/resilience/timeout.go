package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/errors"
)

// WithTimeout runs fn under a deadline of d. A zero d means no deadline.
// When the deadline passes first the error matches both apperrors.ErrTimeout
// and context.DeadlineExceeded; fn keeps running until it observes its ctx.
func WithTimeout(ctx context.Context, d time.Duration, op string, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeoutCause(ctx, d, apperrors.ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if context.Cause(ctx) != apperrors.ErrTimeout {
			return fmt.Errorf("%s: %w", op, context.Cause(ctx))
		}
		return fmt.Errorf("%s exceeded %v: %w: %w", op, d, apperrors.ErrTimeout, context.DeadlineExceeded)
	}
}
