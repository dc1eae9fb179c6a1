package parserator

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// RetryConfig controls the exponential-backoff wrapper around transport
// calls. The delay starts at BaseDelay, multiplies by BackoffFactor per
// attempt, and is capped at MaxDelay; each sleep adds bounded random jitter
// so synchronized clients do not retry in lockstep.
type RetryConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig mirrors the hosted service's recommended client
// settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

const maxRetryJitter = 500 * time.Millisecond

// retryWithBackoff executes call, retrying while shouldRetry approves and the
// attempt budget lasts. The last error propagates unchanged once retries are
// exhausted. Sleeps honor ctx cancellation.
func retryWithBackoff(ctx context.Context, call func() error, cfg RetryConfig, shouldRetry func(err error, attempt int) bool, log *slog.Logger) error {
	delay := cfg.BaseDelay
	for attempt := 0; ; attempt++ {
		err := call()
		if err == nil {
			if attempt > 0 {
				log.Debug("attempt succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}
		if attempt >= cfg.MaxRetries {
			log.Debug("final attempt failed", "attempt", attempt+1, "error", err)
			return err
		}
		if shouldRetry != nil && !shouldRetry(err, attempt) {
			return err
		}

		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		sleep := delay + time.Duration(rand.Int63n(int64(maxRetryJitter)))
		log.Debug("attempt failed, retrying", "attempt", attempt+1, "error", err, "delay", sleep)
		if err := sleepContext(ctx, sleep); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimiter spaces call issuance to a requests-per-second ceiling using a
// single last-permit watermark under a mutex. Waiters are delayed, never
// dropped.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewRateLimiter builds a limiter allowing requestsPerSecond calls.
func NewRateLimiter(requestsPerSecond float64) (*RateLimiter, error) {
	if requestsPerSecond <= 0 {
		return nil, newValidationError("requests per second must be positive", nil)
	}
	return &RateLimiter{interval: time.Duration(float64(time.Second) / requestsPerSecond)}, nil
}

// Wait blocks until the caller is allowed to proceed or ctx is done. The
// watermark advances only when a permit is granted, so a cancelled waiter
// does not consume a slot.
func (l *RateLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if wait := l.interval - time.Since(l.last); wait > 0 {
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}
	l.last = time.Now()
	return nil
}
