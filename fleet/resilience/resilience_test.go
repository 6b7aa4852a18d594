package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, []time.Duration{time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryExhausted(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 2, nil, func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, 2, attempts)
}

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	b := NewCircuitBreaker(2, 20*time.Millisecond)
	require.True(t, b.Allow())

	b.Failure()
	require.Equal(t, Closed, b.State())
	b.Failure()
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow())

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())
	require.True(t, b.Allow())

	b.Success()
	require.Equal(t, Closed, b.State())
}

func TestCircuitBreakerDo(t *testing.T) {
	b := NewCircuitBreaker(1, time.Hour)
	err := b.Do(func() error { return errors.New("fail") })
	require.Error(t, err)
	require.Equal(t, Open, b.State())

	err = b.Do(func() error { return nil })
	require.ErrorIs(t, err, ErrOpen)
}
