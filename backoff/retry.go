package backoff

import (
	"context"
	"time"
)

// Policy bounds a retried store call.
type Policy struct {
	Name       string
	MaxRetries int
	Strategy   Strategy
}

// RedisPolicy is used for short store calls: 2 retries, 150ms base,
// 2s max, 20% jitter.
func RedisPolicy() Policy {
	return Policy{
		Name:       "redis",
		MaxRetries: 2,
		Strategy:   NewJittered(150*time.Millisecond, 2*time.Second, 0.2),
	}
}

// OnRetry is called before each retry with the 1-indexed retry number and
// the error that caused it.
type OnRetry func(attempt int, delay time.Duration, err error)

// Retry calls fn until it succeeds, returns an error retryable rejects,
// or MaxRetries retries have been spent. A nil retryable retries every
// error. The last error is returned.
func Retry(ctx context.Context, p Policy, fn func(context.Context) error, retryable func(error) bool, onRetry OnRetry) error {
	strategy := p.Strategy
	if strategy == nil {
		strategy = NewConstant(0)
	}
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || (retryable != nil && !retryable(err)) {
			return err
		}
		delay := strategy.Delay(attempt + 1)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}
		if serr := Sleep(ctx, delay); serr != nil {
			return err
		}
	}
}
