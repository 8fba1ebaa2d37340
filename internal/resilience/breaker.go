package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrSourceOpen rejects fetches while the breaker cools down.
var ErrSourceOpen = eris.New("review source breaker open")

// Breaker trips after a run of consecutive fetch failures and rejects
// further calls until a cooldown passes, then lets a probe through. A
// failed probe restarts the cooldown.
type Breaker struct {
	trip     int
	cooldown time.Duration

	mu       sync.Mutex
	failures int
	open     bool
	openedAt time.Time

	// now is swapped out by tests.
	now func() time.Time
}

// NewBreaker builds a breaker. Non-positive arguments fall back to 5
// failures and a two minute cooldown.
func NewBreaker(trip int, cooldown time.Duration) *Breaker {
	if trip <= 0 {
		trip = 5
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Minute
	}
	return &Breaker{trip: trip, cooldown: cooldown, now: time.Now}
}

// Guard runs op through the breaker, keeping its return value.
func Guard[T any](ctx context.Context, b *Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, ErrSourceOpen
	}
	val, err := op(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return val, nil
}

// Open reports whether calls are currently rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && b.now().Sub(b.openedAt) < b.cooldown
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker and clears the failure run.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failures = 0
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	// Once the cooldown has passed the next call is the probe.
	return b.now().Sub(b.openedAt) >= b.cooldown
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.open {
			zap.L().Info("resilience: breaker closed after probe")
		}
		b.open = false
		b.failures = 0
		return
	}

	b.failures++
	if b.open {
		// Failed probe; restart the cooldown.
		b.openedAt = b.now()
		return
	}
	if b.failures >= b.trip {
		b.open = true
		b.openedAt = b.now()
		zap.L().Warn("resilience: breaker opened",
			zap.Int("consecutive_failures", b.failures),
		)
	}
}
