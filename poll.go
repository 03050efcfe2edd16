package cozebridge

import (
	"context"
	"time"
)

// DefaultMaxAttempts is the number of status checks made before giving up.
const DefaultMaxAttempts = 10

// PollConfig holds configuration for status polling.
type PollConfig struct {
	MaxAttempts int           // Maximum number of status checks
	Interval    time.Duration // Delay between checks, zero fires the next check immediately
}

// DefaultPollConfig returns ten attempts with no delay between them.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		MaxAttempts: DefaultMaxAttempts,
		Interval:    0,
	}
}

// PollFunc performs one check. It reports done once the awaited state is
// reached; any error stops polling.
type PollFunc[T any] func(attempt int) (value T, done bool, err error)

// Poll calls fn until it reports done, returns an error, or MaxAttempts checks
// have been made. Exhaustion yields a *TimeoutError.
func Poll[T any](ctx context.Context, cfg PollConfig, fn PollFunc[T]) (T, error) {
	var zero T
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, done, err := fn(attempt)
		if err != nil {
			return zero, err
		}
		if done {
			return value, nil
		}

		// No wait after the final attempt
		if attempt < maxAttempts && cfg.Interval > 0 {
			timer := time.NewTimer(cfg.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, &TimeoutError{Attempts: maxAttempts}
}
