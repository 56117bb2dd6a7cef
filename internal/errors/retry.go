package errors

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (not including initial attempt).
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Multiplier is the factor by which delay increases after each retry.
	Multiplier float64

	// Jitter adds randomness to delay to prevent thundering herd.
	Jitter bool

	// OnRetry, if set, is called after a failed attempt and before waiting.
	// attempt is 1-based.
	OnRetry func(attempt int, err error, wait time.Duration)

	// Retryable, if set, decides whether a failed attempt is worth repeating.
	// A false answer ends the loop with that error. Nil retries everything.
	Retryable func(err error) bool
}

// DefaultRetryConfig returns the pipeline's default backoff: 2s, 4s, 8s, ...
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 2 * time.Second,
		MaxDelay:     32 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

// Attempts returns the total number of attempts (initial plus retries).
func (c RetryConfig) Attempts() int {
	return c.MaxRetries + 1
}

// WithAttempts returns a copy of c configured for n total attempts.
func (c RetryConfig) WithAttempts(n int) RetryConfig {
	if n < 1 {
		n = 1
	}
	c.MaxRetries = n - 1
	return c
}

// Retry executes a function with exponential backoff retry logic.
// It retries up to MaxRetries times if the function returns an error.
// If the context is cancelled, it returns the context error immediately.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes a function that returns a value with retry logic.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return zero, fmt.Errorf("attempt %d not retryable: %w", attempt+1, err)
		}

		// Last attempt: no wait
		if attempt >= cfg.MaxRetries {
			break
		}

		waitDelay := delay
		if cfg.Jitter {
			// delay * (0.5 + rand(0, 0.5))
			jitterFactor := 0.5 + rand.Float64()*0.5
			waitDelay = time.Duration(float64(delay) * jitterFactor)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, waitDelay)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(waitDelay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", cfg.Attempts(), lastErr)
}
