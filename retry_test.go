package parserator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:    maxRetries,
		BaseDelay:     time.Nanosecond,
		MaxDelay:      time.Nanosecond,
		BackoffFactor: 1,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return nil
	}, fastRetryConfig(3), nil, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsBudget(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return boom
	}, fastRetryConfig(3), nil, discardLogger())

	assert.Same(t, boom, err, "the last error must propagate unchanged")
	assert.Equal(t, 4, calls, "one initial attempt plus three retries")
}

func TestRetryRecoversMidway(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return newServiceUnavailableError("")
		}
		return nil
	}, fastRetryConfig(3), nil, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPredicateStopsEarly(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return newValidationError("bad request", nil)
	}, fastRetryConfig(3), func(err error, attempt int) bool {
		pe, ok := AsError(err)
		return ok && pe.Retryable()
	}, discardLogger())

	assert.True(t, IsCode(err, CodeValidation))
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")
}

func TestRetryZeroBudgetRunsOnce(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("always")
	}, fastRetryConfig(0), nil, discardLogger())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{
		MaxRetries:    5,
		BaseDelay:     time.Hour,
		MaxDelay:      time.Hour,
		BackoffFactor: 1,
	}

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := retryWithBackoff(ctx, func() error {
		calls++
		return newNetworkError("down")
	}, cfg, nil, discardLogger())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff must stop further attempts")
}

func TestNewRateLimiterRejectsNonPositiveRate(t *testing.T) {
	for _, rps := range []float64{0, -1} {
		_, err := NewRateLimiter(rps)
		require.Error(t, err)
		assert.True(t, IsCode(err, CodeValidation))
	}
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	limiter, err := NewRateLimiter(50) // 20ms between permits
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond, "three permits at 50 rps need two full intervals")
}

func TestRateLimiterFirstCallIsImmediate(t *testing.T) {
	limiter, err := NewRateLimiter(1)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiterCancelledWaiter(t *testing.T) {
	limiter, err := NewRateLimiter(0.5) // 2s interval
	require.NoError(t, err)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)
}
