// Package retry implements the bounded exponential backoff applied at the
// adapter boundary. Rate-limit and timeout failures may be retried; auth and
// invalid-response failures never are.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/genstack/genstack/providers/ai"
)

// ErrExhausted is returned when all retry attempts have been consumed without
// a successful response. It wraps the last underlying provider error so
// callers can use errors.Is / errors.As to inspect the root cause.
var ErrExhausted = errors.New("retry: all attempts exhausted")

// Config holds the tuning parameters for Do. Zero values are replaced with
// the documented defaults.
type Config struct {
	// MaxRetries is the number of retry attempts after the first failure.
	// Default: 2 (the provider is called at most 3 times).
	MaxRetries int

	// BaseDelay is the wait before the first retry. Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff. Default: 5s.
	MaxDelay time.Duration

	// Factor is the exponential growth multiplier
	// (delay = min(BaseDelay * Factor^attempt, MaxDelay)). Default: 2.0.
	Factor float64

	// JitterFraction adds random noise in [0, JitterFraction*delay] to avoid
	// synchronized retries. Default: 0.1.
	JitterFraction float64

	// Retryable reports whether an error should trigger another attempt.
	// Default: ai.IsRetryable (rate-limited and timeout kinds only).
	Retryable func(error) bool
}

func (config *Config) applyDefaults() {
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.BaseDelay == 0 {
		config.BaseDelay = 500 * time.Millisecond
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Factor == 0 {
		config.Factor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.Retryable == nil {
		config.Retryable = ai.IsRetryable
	}
}

// Kinds returns a Retryable predicate that matches only the given
// ProviderError kinds. Errors carrying no ProviderError are never retried.
func Kinds(kinds ...ai.ProviderErrorKind) func(error) bool {
	return func(err error) bool {
		kind, ok := ai.ErrorKind(err)
		if !ok {
			return false
		}
		for _, candidate := range kinds {
			if kind == candidate {
				return true
			}
		}
		return false
	}
}

// backoff returns the delay before retry number attempt (0-indexed).
func backoff(config Config, attempt int) time.Duration {
	base := float64(config.BaseDelay) * math.Pow(config.Factor, float64(attempt))
	if base > float64(config.MaxDelay) {
		base = float64(config.MaxDelay)
	}
	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter
	return time.Duration(base + jitter)
}

// Do invokes op, retrying per config. Context cancellation is honored between
// attempts. On exhaustion the returned error wraps both ErrExhausted and the
// last provider error.
func Do[T any](ctx context.Context, config Config, op func(ctx context.Context) (T, error)) (T, error) {
	config.applyDefaults()

	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff(config, attempt-1)):
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !config.Retryable(err) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d retries: %w", ErrExhausted, config.MaxRetries, lastErr)
}
