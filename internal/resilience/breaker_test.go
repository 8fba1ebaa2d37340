package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failN(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_, _ = Guard(context.Background(), b, func(context.Context) (int, error) {
			return 0, errors.New("fetch failed")
		})
	}
}

func TestBreakerPassesThrough(t *testing.T) {
	b := NewBreaker(5, time.Minute)

	val, err := Guard(context.Background(), b, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.False(t, b.Open())
}

func TestBreakerTripsAfterRun(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	failN(b, 3)
	assert.True(t, b.Open())
	assert.Equal(t, 3, b.Failures())

	val, err := Guard(context.Background(), b, func(context.Context) (int, error) {
		t.Fatal("open breaker must not call through")
		return 1, nil
	})
	require.ErrorIs(t, err, ErrSourceOpen)
	assert.Zero(t, val)
}

func TestBreakerSuccessClearsRun(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	failN(b, 2)
	assert.Equal(t, 2, b.Failures())
	assert.False(t, b.Open())

	_, err := Guard(context.Background(), b, func(context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	assert.Zero(t, b.Failures())
}

func TestBreakerProbeAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, 100*time.Millisecond)
	b.now = func() time.Time { return now }

	failN(b, 2)
	require.True(t, b.Open())

	b.now = func() time.Time { return now.Add(200 * time.Millisecond) }
	assert.False(t, b.Open())

	// a successful probe closes it for good
	val, err := Guard(context.Background(), b, func(context.Context) (int, error) {
		return 9, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, val)
	assert.Zero(t, b.Failures())

	b.now = func() time.Time { return now }
	assert.False(t, b.Open())
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, 100*time.Millisecond)
	b.now = func() time.Time { return now }

	failN(b, 2)
	require.True(t, b.Open())

	probeTime := now.Add(200 * time.Millisecond)
	b.now = func() time.Time { return probeTime }
	failN(b, 1)

	assert.True(t, b.Open())
	assert.Equal(t, 3, b.Failures())

	// the cooldown restarted at the probe failure
	b.now = func() time.Time { return probeTime.Add(50 * time.Millisecond) }
	_, err := Guard(context.Background(), b, func(context.Context) (int, error) {
		return 0, nil
	})
	require.ErrorIs(t, err, ErrSourceOpen)
}

func TestBreakerReset(t *testing.T) {
	b := NewBreaker(2, time.Hour)

	failN(b, 2)
	require.True(t, b.Open())

	b.Reset()
	assert.False(t, b.Open())
	assert.Zero(t, b.Failures())

	_, err := Guard(context.Background(), b, func(context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(0, 0)
	assert.Equal(t, 5, b.trip)
	assert.Equal(t, 2*time.Minute, b.cooldown)
}

func TestBreakerConcurrentAccess(t *testing.T) {
	t.Parallel()
	b := NewBreaker(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = Guard(context.Background(), b, func(context.Context) (int, error) {
				if i%2 == 0 {
					return 0, errors.New("fail")
				}
				return 1, nil
			})
		}(i)
	}
	wg.Wait()
}
