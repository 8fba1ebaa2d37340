// Package resilience guards calls to external review sources. Sources
// throttle and drop connections under load, so fetches run through an
// exponential-backoff retry wrapped around a trip breaker.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff describes the retry schedule for a fetch.
type Backoff struct {
	// Attempts counts the first try. 1 disables retries.
	Attempts int

	// Base is the delay before the first retry.
	Base time.Duration

	// Cap bounds the grown delay.
	Cap time.Duration

	// Growth multiplies the delay after each failed attempt.
	Growth float64

	// Jitter spreads each delay by up to this fraction either way.
	Jitter float64

	// Retryable decides which errors are worth another attempt.
	// Defaults to IsTransient.
	Retryable func(error) bool

	// Notify fires before each retry sleep.
	Notify func(attempt int, err error)
}

// SourceBackoff is the schedule used for review-source fetches. Sources
// rate-limit aggressively, so the base delay is generous.
func SourceBackoff() Backoff {
	return Backoff{
		Attempts: 4,
		Base:     2 * time.Second,
		Cap:      time.Minute,
		Growth:   2.0,
		Jitter:   0.2,
	}
}

// Retry runs op until it succeeds, exhausts the schedule, returns a
// non-retryable error, or the context ends.
func Retry[T any](ctx context.Context, b Backoff, op func(ctx context.Context) (T, error)) (T, error) {
	b = b.normalized()

	retryable := b.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}

		if ctx.Err() != nil || !retryable(err) || attempt >= b.Attempts {
			return zero, err
		}

		if b.Notify != nil {
			b.Notify(attempt, err)
		}

		timer := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

func (b Backoff) normalized() Backoff {
	def := SourceBackoff()
	if b.Attempts <= 0 {
		b.Attempts = def.Attempts
	}
	if b.Base <= 0 {
		b.Base = def.Base
	}
	if b.Cap <= 0 {
		b.Cap = def.Cap
	}
	if b.Growth <= 0 {
		b.Growth = def.Growth
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	return b
}

// delay grows geometrically from Base: the sleep after attempt 1 is
// Base, after attempt 2 it is Base*Growth, and so on up to Cap.
func (b Backoff) delay(attempt int) time.Duration {
	d := float64(b.Base) * math.Pow(b.Growth, float64(attempt-1))
	if d > float64(b.Cap) {
		d = float64(b.Cap)
	}
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// LogRetries returns a Notify hook that warns on each retry.
func LogRetries(source string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("resilience: retrying fetch",
			zap.String("source", source),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
