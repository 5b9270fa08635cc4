package embedder

import (
	"context"
	"time"
)

// Retry defaults for provider calls
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultMultiplier = 2.0
)

// RetryConfig is the backoff policy for a provider call. MaxRetries
// counts total attempts, not re-attempts: 3 means one call plus two
// retries.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns the standard provider retry policy
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Multiplier: DefaultMultiplier,
	}
}

// retryWithBackoff runs call until it succeeds, the attempt budget runs
// out, or ctx ends. The wait between attempts grows by Multiplier and
// is capped at MaxDelay. The final attempt's error is what the caller
// sees; a cancelled context wins over it.
func retryWithBackoff[T any](ctx context.Context, policy RetryConfig, call func() (T, error)) (T, error) {
	var zero T
	delay := policy.BaseDelay
	for attempt := 1; ; attempt++ {
		result, err := call()
		if err == nil {
			return result, nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return zero, cerr
		}
		if attempt >= policy.MaxRetries {
			return zero, err
		}
		if werr := wait(ctx, delay); werr != nil {
			return zero, werr
		}
		delay = min(time.Duration(float64(delay)*policy.Multiplier), policy.MaxDelay)
	}
}

// wait blocks for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
