// Package resilience retries flaky page fetches with exponential backoff and
// bounds slow operations by a deadline.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
	// Retryable reports whether a failed attempt is worth repeating. A nil
	// Retryable retries every error.
	Retryable func(error) bool
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = max(c.InitialDelay, 10*time.Second)
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.Jitter <= 0 || c.Jitter > 1 {
		c.Jitter = 0.1
	}
	return c
}

// Backoff returns the wait before attempt+1, never above MaxDelay.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	c = c.normalized()
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	d += d * c.Jitter * (2*rand.Float64() - 1)
	return time.Duration(min(max(d, float64(c.InitialDelay)/2), float64(c.MaxDelay)))
}

// AttemptsError is returned once every attempt has failed.
type AttemptsError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *AttemptsError) Unwrap() error { return e.Last }

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. fn receives the 1-based attempt number.
func Retry(ctx context.Context, op string, cfg RetryConfig, fn func(attempt int) error) error {
	cfg = cfg.normalized()
	logger := slog.Default().With("component", "retry", "op", op)

	var last error
	for attempt := 1; ; attempt++ {
		if last = fn(attempt); last == nil {
			if attempt > 1 {
				logger.Debug("recovered", "attempt", attempt)
			}
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(last) {
			return last
		}
		if attempt >= cfg.MaxAttempts {
			return &AttemptsError{Op: op, Attempts: attempt, Last: last}
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: retry abandoned: %w", op, err)
		}

		delay := cfg.Backoff(attempt)
		logger.Warn("attempt failed", "attempt", attempt, "of", cfg.MaxAttempts, "error", last, "backoff", delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry abandoned: %w", op, ctx.Err())
		}
	}
}
