package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) Backoff {
	return Backoff{
		Attempts: attempts,
		Base:     time.Millisecond,
		Cap:      5 * time.Millisecond,
		Growth:   2.0,
	}
}

func TestRetryFirstTrySucceeds(t *testing.T) {
	var calls int
	val, err := Retry(context.Background(), fastBackoff(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversAfterTransientFailures(t *testing.T) {
	var calls int
	val, err := Retry(context.Background(), fastBackoff(4), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, MarkTransient(errors.New("throttled"), 429)
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, val)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsSchedule(t *testing.T) {
	var calls int
	val, err := Retry(context.Background(), fastBackoff(3), func(context.Context) (int, error) {
		calls++
		return 42, MarkTransient(errors.New("still down"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Zero(t, val, "failures return the zero value")
}

func TestRetryFailsFastOnPermanentError(t *testing.T) {
	var calls int
	_, err := Retry(context.Background(), fastBackoff(5), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("company not found")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := fastBackoff(10)
	b.Base = 20 * time.Millisecond
	b.Cap = 50 * time.Millisecond

	var calls int
	_, err := Retry(ctx, b, func(context.Context) (int, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return 0, MarkTransient(errors.New("flaky"), 500)
	})
	require.Error(t, err)
	assert.LessOrEqual(t, calls, 3)
}

func TestRetryCustomRetryable(t *testing.T) {
	b := fastBackoff(3)
	b.Retryable = func(err error) bool { return err.Error() == "again" }

	var calls int
	_, err := Retry(context.Background(), b, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("again")
		}
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryNotify(t *testing.T) {
	var attempts []int
	b := fastBackoff(3)
	b.Notify = func(attempt int, _ error) {
		attempts = append(attempts, attempt)
	}

	_, _ = Retry(context.Background(), b, func(context.Context) (int, error) {
		return 0, MarkTransient(errors.New("down"), 500)
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetryZeroConfigUsesDefaults(t *testing.T) {
	var calls int
	_, err := Retry(context.Background(), Backoff{}, func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDelayGrowth(t *testing.T) {
	b := Backoff{
		Base:   100 * time.Millisecond,
		Cap:    10 * time.Second,
		Growth: 2.0,
	}.normalized()

	assert.Equal(t, 100*time.Millisecond, b.delay(1))
	assert.Equal(t, 200*time.Millisecond, b.delay(2))
	assert.Equal(t, 400*time.Millisecond, b.delay(3))
	assert.Equal(t, 800*time.Millisecond, b.delay(4))
}

func TestDelayCap(t *testing.T) {
	b := Backoff{
		Base:   time.Second,
		Cap:    5 * time.Second,
		Growth: 10.0,
	}.normalized()

	assert.LessOrEqual(t, b.delay(6), 5*time.Second)
}

func TestDelayJitterRange(t *testing.T) {
	b := Backoff{
		Base:   time.Second,
		Cap:    30 * time.Second,
		Growth: 2.0,
		Jitter: 0.5,
	}.normalized()

	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		d := b.delay(1)
		seen[d] = true
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
	assert.Greater(t, len(seen), 1, "jitter should vary the delay")
}
