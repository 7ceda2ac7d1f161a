package reliability

import (
	"context"
	"time"
)

// IsRetryableHTTPStatus classifies provider responses that are safe to retry
// without advancing conversation state.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}

// Retry runs fn up to attempts times with capped exponential backoff between
// failures. The last error is returned when every attempt fails.
func Retry(ctx context.Context, attempts int, base, cap time.Duration, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(ExponentialBackoff(attempt-1, base, cap)):
			}
		}
		if last = fn(ctx); last == nil {
			return nil
		}
	}
	return last
}
