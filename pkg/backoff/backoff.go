package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy computes how long to wait after a failed attempt. The zero value
// is not useful; start from Exponential.
type Policy struct {
	// Base is the wait after the first failed attempt.
	Base time.Duration
	// Factor multiplies the wait for every further attempt.
	Factor float64
	// Max caps a single wait. Zero means uncapped.
	Max time.Duration
	// Jitter adds up to Jitter*delay of random extra wait (0.0 to 1.0).
	Jitter float64
}

// Exponential returns the doubling policy: 1s, 2s, 4s, ...
func Exponential() Policy {
	return Policy{
		Base:   time.Second,
		Factor: 2,
	}
}

// Delay returns the wait after the zero-based attempt, i.e. Base*Factor^attempt
// plus any jitter.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}

	d := time.Duration(float64(p.Base) * math.Pow(factor, float64(attempt)))
	if p.Max > 0 && (d > p.Max || d < 0) {
		d = p.Max
	}

	jitter := p.Jitter
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 {
		// Only positive jitter; a retry never fires earlier than the base schedule.
		d += time.Duration(float64(d) * jitter * rand.Float64())
	}
	return d
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
