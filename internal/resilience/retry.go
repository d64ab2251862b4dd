// Package resilience provides the single bounded-retry policy applied at the
// provider, enrichment, and campaign-sync boundaries. Callers never hand-roll
// their own retry loops.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior with exponential backoff and jitter.
type Policy struct {
	// Attempts is the total number of attempts including the first try.
	// A value of 1 means no retries. Default: 3.
	Attempts int

	// BaseDelay is the delay before the first retry. Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Default: 10s.
	MaxDelay time.Duration

	// JitterFraction adds random jitter as a fraction of the computed delay.
	// Default: 0.25.
	JitterFraction float64

	// ShouldRetry optionally overrides the default transient-error check.
	ShouldRetry func(err error) bool
}

// DefaultPolicy returns the retry policy used for external API calls.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:       3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		JitterFraction: 0.25,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.JitterFraction < 0 {
		p.JitterFraction = 0
	}
	return p
}

// Do executes fn under the policy, retrying only transient errors. Context
// cancellation stops retries immediately and returns the last error.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn under the policy, preserving the value from the
// successful attempt.
func DoVal[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt >= p.Attempts-1 {
			break
		}

		delay := p.backoff(attempt)
		zap.L().Warn("retrying operation",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func (p Policy) backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.JitterFraction > 0 {
		jitterRange := delay * p.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
