package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls attempt count and backoff growth.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultRetryPolicy is used for zero-valued policy fields.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
	Jitter:       0.1,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultRetryPolicy.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultRetryPolicy.Multiplier
	}
	if p.Jitter <= 0 {
		p.Jitter = DefaultRetryPolicy.Jitter
	}
	return p
}

// Retry runs fn up to MaxAttempts times with exponential backoff and
// jitter between attempts. It stops early if the context is cancelled.
func Retry(ctx context.Context, name string, policy RetryPolicy, fn func(ctx context.Context) error) error {
	policy = policy.withDefaults()
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-time.After(policy.delay(attempt)):
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
	}
	return fmt.Errorf("%s: %d attempts failed: %w", name, policy.MaxAttempts, lastErr)
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	backoff := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	backoff += backoff * p.Jitter * (2*rand.Float64() - 1)
	if backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}
	if backoff < 0 {
		backoff = float64(p.InitialDelay)
	}
	return time.Duration(backoff)
}
