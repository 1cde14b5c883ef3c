package provider

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for provider calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the starting backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the backoff after each failed attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0) applied to each sleep.
	Jitter float64

	// RetryableFunc optionally overrides the default retryability check.
	RetryableFunc func(error) bool
}

// DefaultRetry is the standard budget for generation calls: a single retry
// with short backoff, keeping total run time bounded.
var DefaultRetry = RetryConfig{
	MaxAttempts:    2,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.2,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{MaxAttempts: 1}

// RetryResult holds the outcome of a retried operation.
type RetryResult[T any] struct {
	// Value is the result if any attempt succeeded.
	Value T

	// Err is the final error if all attempts failed.
	Err error

	// Attempts is the number of attempts made.
	Attempts int
}

// Retry executes fn with the configured retry budget, respecting context
// cancellation before each attempt and during backoff sleeps.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) RetryResult[T] {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	isRetryable := cfg.RetryableFunc
	if isRetryable == nil {
		isRetryable = IsRetryable
	}

	backoff := cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return RetryResult[T]{Err: err, Attempts: attempt}
		}

		value, err := fn(ctx)
		if err == nil {
			return RetryResult[T]{Value: value, Attempts: attempt + 1}
		}
		lastErr = err

		if !isRetryable(err) {
			return RetryResult[T]{Err: err, Attempts: attempt + 1}
		}

		if attempt < cfg.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return RetryResult[T]{Err: ctx.Err(), Attempts: attempt + 1}
			case <-time.After(withJitter(backoff, cfg.Jitter)):
			}

			backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
			if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}
	}

	return RetryResult[T]{Err: lastErr, Attempts: cfg.MaxAttempts}
}

// withJitter applies +/- jitter*base random noise to a backoff duration.
func withJitter(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || base <= 0 {
		return base
	}
	noise := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + noise)
}
