package mctp

import (
	"context"
	"time"
)

// RetryPolicy configures exponential backoff for operations that fail with a
// transient error, such as a PhysicalBinding write hitting a momentarily full
// socket buffer.
type RetryPolicy struct {
	MaxAttempts  int           // Maximum number of attempts (default: 3)
	InitialDelay time.Duration // Delay before the first retry (default: 10ms)
	MaxDelay     time.Duration // Delay ceiling (default: 200ms)
	Multiplier   float64       // Backoff multiplier (default: 2.0)
}

// defaultRetryPolicy is the policy UDPBinding applies to its socket writes.
// LoopbackBinding and HubBinding do not retry.
var defaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 10 * time.Millisecond,
	MaxDelay:     200 * time.Millisecond,
	Multiplier:   2.0,
}

// withRetry runs operation, retrying with exponential backoff while the
// returned error satisfies isRetryable. After policy.MaxAttempts attempts it
// returns the last error seen; when ctx is done it returns ctx.Err().
func withRetry(ctx context.Context, policy RetryPolicy, operation func() error) error {
	if policy.MaxAttempts <= 1 {
		return operation()
	}

	var lastErr error
	delay := policy.InitialDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return lastErr
}
