package provider

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/config"
)

// Pacer enforces the per-adapter request discipline: a randomized
// inter-request delay within [min, max], a rotating client identity drawn
// from a fixed pool, and a rolling hourly request cap. Each adapter owns its
// own Pacer so one throttled source never slows the others.
type Pacer struct {
	minDelay time.Duration
	maxDelay time.Duration
	agents   []string
	next     atomic.Uint64
	hourly   *rate.Limiter
}

// NewPacer builds a pacer from the rate limit configuration.
func NewPacer(cfg config.RateLimitConfig) *Pacer {
	minDelay := time.Duration(cfg.MinDelayMillis) * time.Millisecond
	maxDelay := time.Duration(cfg.MaxDelayMillis) * time.Millisecond
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	hourlyLimit := cfg.HourlyLimit
	if hourlyLimit <= 0 {
		hourlyLimit = 1000
	}

	return &Pacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
		agents:   cfg.UserAgents,
		// Tokens refill continuously at the hourly rate, with a burst of
		// the full cap, approximating a rolling one-hour window.
		hourly: rate.NewLimiter(rate.Limit(float64(hourlyLimit)/3600.0), hourlyLimit),
	}
}

// Wait blocks for the randomized inter-request delay, then consumes one
// token from the hourly budget. Exhausting the budget returns ErrRateLimited
// immediately rather than blocking until the window rolls.
func (p *Pacer) Wait(ctx context.Context) error {
	delay := p.minDelay
	if p.maxDelay > p.minDelay {
		delay += time.Duration(rand.Int64N(int64(p.maxDelay - p.minDelay)))
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if !p.hourly.Allow() {
		return ErrRateLimited
	}
	return nil
}

// UserAgent returns the next client identity from the rotation pool.
func (p *Pacer) UserAgent() string {
	if len(p.agents) == 0 {
		return "leadgen-cli/1.0"
	}
	n := p.next.Add(1)
	return p.agents[int(n-1)%len(p.agents)]
}
