// Package retry provides bounded retry loops with backoff.
//
// Two primitives cover every retry site in the tracker: Do retries an
// operation until it stops returning errors, DoValue retries a producer
// until an acceptance predicate approves its output. Chunk requests,
// whole-generation calls and the markup-contract loop all share these.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config holds retry configuration.
type Config struct {
	// MaxRetries is the maximum number of retry attempts after the first try.
	MaxRetries int
	// InitialBackoff is the initial delay before retrying.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration
	// Multiplier is the exponential backoff multiplier. 1.0 keeps a fixed delay.
	Multiplier float64
	// JitterFraction is the fraction of backoff used for jitter (0.0-1.0).
	JitterFraction float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}
}

// Fixed returns a configuration with a constant delay between attempts.
// attempts is the total attempt count, not the retry count.
func Fixed(attempts int, delay time.Duration) Config {
	if attempts < 1 {
		attempts = 1
	}
	return Config{
		MaxRetries:     attempts - 1,
		InitialBackoff: delay,
		MaxBackoff:     delay,
		Multiplier:     1.0,
	}
}

// ErrorClassifier determines if an error is retryable.
type ErrorClassifier func(error) bool

// IsRetryable is the default error classifier. Context cancellation is
// never retryable; everything else is.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Do executes fn with retry logic, using the provided classifier to decide
// whether an error is worth another attempt.
func Do(ctx context.Context, cfg Config, classifier ErrorClassifier, fn func(context.Context) error) error {
	if classifier == nil {
		classifier = IsRetryable
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := fn(ctx); err == nil {
			return nil
		} else {
			lastErr = err
			if !classifier(err) {
				return err
			}
		}

		if attempt == cfg.MaxRetries {
			break
		}

		backoff, lastErr = sleep(ctx, cfg, backoff)
		if lastErr != nil {
			return lastErr
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// ErrExhausted is returned by DoValue when no attempt produced an
// acceptable value. The last value produced is still returned alongside it
// so callers can apply a terminal fallback (e.g. forced sanitization).
var ErrExhausted = errors.New("retry: attempts exhausted")

// DoValue executes fn until accept approves its result or attempts run out.
// The accept predicate sees both the value and the error of each attempt.
// On exhaustion the value of the final attempt is returned together with
// ErrExhausted wrapping the final attempt's error, if any.
func DoValue[T any](ctx context.Context, cfg Config, accept func(T, error) bool, fn func(context.Context) (T, error)) (T, error) {
	var (
		last    T
		lastErr error
	)
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		last, lastErr = fn(ctx)
		if accept(last, lastErr) {
			return last, nil
		}

		if attempt == cfg.MaxRetries {
			break
		}

		var err error
		backoff, err = sleep(ctx, cfg, backoff)
		if err != nil {
			return last, err
		}
	}

	if lastErr != nil {
		return last, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
	}
	return last, ErrExhausted
}

// sleep waits for the current backoff (plus jitter) or until the context is
// canceled, and returns the backoff for the next attempt.
func sleep(ctx context.Context, cfg Config, backoff time.Duration) (time.Duration, error) {
	wait := backoff + jitter(backoff, cfg.JitterFraction)
	if wait > cfg.MaxBackoff {
		wait = cfg.MaxBackoff
	}

	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return backoff, ctx.Err()
	}

	next := time.Duration(float64(backoff) * cfg.Multiplier)
	if next > cfg.MaxBackoff {
		next = cfg.MaxBackoff
	}
	return next, nil
}

// jitter returns a random duration in range [-fraction*d, +fraction*d].
func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return 0
	}
	jitterRange := float64(d) * fraction
	return time.Duration((rand.Float64() - 0.5) * 2 * jitterRange)
}
