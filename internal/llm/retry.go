package llm

import (
	"context"
	"time"
)

// retrier holds shared exponential-backoff retry configuration for
// provider adapters.
type retrier struct {
	maxRetries int
	baseDelay  time.Duration
}

func newRetrier(maxRetries int, baseDelay time.Duration) retrier {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return retrier{maxRetries: maxRetries, baseDelay: baseDelay}
}

// do runs op, retrying with exponential backoff (baseDelay * 2^attempt)
// while isRetryable(err) holds, up to maxRetries retries after the first
// attempt.
func (r retrier) do(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if isRetryable == nil || !isRetryable(lastErr) || attempt == r.maxRetries {
			return lastErr
		}
		backoff := r.baseDelay << attempt
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}
