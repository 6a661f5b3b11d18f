// Package retry provides a bounded retry primitive with exponential backoff.
//
// It is used for browser connection establishment, element resolution, and
// step execution. Backoff between attempts grows geometrically up to a
// ceiling; an optional decision callback can override the default behavior
// after each failed attempt.
package retry

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Decision is the outcome of an OnFailure callback.
type Decision int

const (
	// Retry continues with the next attempt (the default).
	Retry Decision = iota
	// Skip abandons the operation without an error; the caller receives
	// the zero value and a nil error.
	Skip
	// Abort fails immediately without consuming the remaining retries.
	Abort
)

// OnFailure decides what to do after a failed attempt that still has
// retries remaining. It receives the operation name, the error, and the
// 0-indexed attempt number. It must be free of side effects on the
// operation itself.
type OnFailure func(name string, err error, attempt int) Decision

// Config bounds a retried operation.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt, so
	// the operation runs at most MaxRetries+1 times.
	MaxRetries int
	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff time.Duration
	// Multiplier scales the backoff for each subsequent attempt.
	Multiplier float64
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
}

// DefaultConfig matches the engine-wide defaults for step-level retries.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		Multiplier:     2,
		MaxBackoff:     8 * time.Second,
	}
}

// Backoff returns the delay applied after the failed attempt n (0-indexed):
// min(initial x multiplier^n, ceiling). Attempt 0 uses the initial value
// unscaled.
func (c Config) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Duration(float64(c.InitialBackoff) * math.Pow(c.Multiplier, float64(attempt)))
	if c.MaxBackoff > 0 && (d > c.MaxBackoff || d < 0) {
		d = c.MaxBackoff
	}
	return d
}

// Do runs op until it succeeds, the attempt budget is exhausted, or the
// OnFailure callback ends the operation early. onFailure may be nil, in
// which case every remaining failure retries. When retries are exhausted
// the last error is returned; a Skip decision returns the zero value with
// a nil error.
func Do[T any](ctx context.Context, name string, cfg Config, op func(context.Context) (T, error), onFailure OnFailure) (T, error) {
	var zero T
	var lastErr error

	logger := slog.With("component", "retry", "operation", name)

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}

		decision := Retry
		if onFailure != nil {
			decision = onFailure(name, err, attempt)
		}
		switch decision {
		case Skip:
			logger.Debug("operation skipped after failure", "attempt", attempt, "error", err)
			return zero, nil
		case Abort:
			logger.Debug("operation aborted after failure", "attempt", attempt, "error", err)
			return zero, err
		}

		delay := cfg.Backoff(attempt)
		logger.Debug("retrying after backoff", "attempt", attempt, "backoff", delay, "error", err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}
