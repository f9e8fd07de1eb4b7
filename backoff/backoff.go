// Package backoff provides retry delay strategies and a bounded retry
// helper for store calls. All strategies are stateless and safe for
// concurrent use.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns Interval.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each attempt.
// Delay = min(Base * 2^(attempt-1), Max).
type Exponential struct {
	Base time.Duration
	Max  time.Duration
}

// NewExponential creates an exponential strategy.
func NewExponential(base, maxDelay time.Duration) *Exponential {
	return &Exponential{Base: base, Max: maxDelay}
}

// Delay returns Base * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	return capped(e.Base, e.Max, attempt)
}

func capped(base, maxDelay time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(base) * math.Pow(2, float64(attempt-1))
	if maxDelay > 0 && d > float64(maxDelay) {
		return maxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// ──────────────────────────────────────────────────
// Jittered
// ──────────────────────────────────────────────────

// Jittered adds up to Ratio of the capped exponential delay on top of it.
// Delay = c + c*Ratio*rand, where c = min(Base * 2^(attempt-1), Max).
// The result never drops below the plain exponential delay.
type Jittered struct {
	Base  time.Duration
	Max   time.Duration
	Ratio float64
}

// NewJittered creates a jittered exponential strategy.
func NewJittered(base, maxDelay time.Duration, ratio float64) *Jittered {
	return &Jittered{Base: base, Max: maxDelay, Ratio: ratio}
}

// Delay returns the capped exponential delay plus jitter.
func (j *Jittered) Delay(attempt int) time.Duration {
	c := capped(j.Base, j.Max, attempt)
	if j.Ratio <= 0 {
		return c
	}
	return c + time.Duration(float64(c)*j.Ratio*rand.Float64()) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the delay used before re-enqueueing a failed
// job: 1s base, 30s max, 20% jitter.
func DefaultStrategy() Strategy {
	return NewJittered(1*time.Second, 30*time.Second, 0.2)
}

// Sleep waits for d or until ctx is done, whichever comes first. It
// returns ctx.Err() when interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
