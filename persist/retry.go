package persist

import (
	randv2 "math/rand/v2"
	"sync/atomic"
	"time"
)

// RetryStrategy returns the next backoff, a zero backoff stops retrying.
type RetryStrategy interface {
	Next() time.Duration
}

type linearBackoff time.Duration

func (backoff linearBackoff) Next() time.Duration {
	return time.Duration(backoff)
}

func EndlessRetry(backoff time.Duration) RetryStrategy {
	return linearBackoff(backoff)
}

func NoRetry() RetryStrategy {
	return linearBackoff(0)
}

type limitedRetry struct {
	strategy RetryStrategy
	count    int64
	maxCount int64
}

func (retry *limitedRetry) Next() time.Duration {
	if atomic.AddInt64(&retry.count, 1) > retry.maxCount {
		return 0
	}
	return retry.strategy.Next()
}

func LimitedRetry(backoff time.Duration, maxCount int64) RetryStrategy {
	if backoff.Milliseconds() <= 0 || maxCount <= 0 {
		return NoRetry()
	}
	return &limitedRetry{
		strategy: linearBackoff(backoff),
		maxCount: maxCount,
	}
}

type exponentialBackoff struct {
	duration time.Duration
	factor   float64
	jitter   float64
	steps    int64
	cap      time.Duration
}

func (backoff *exponentialBackoff) Next() time.Duration {
	if atomic.AddInt64(&backoff.steps, -1) < 0 {
		return 0
	}
	duration := backoff.duration
	if backoff.factor != 0 {
		backoff.duration = time.Duration(float64(backoff.duration) * backoff.factor)
		if backoff.cap > 0 && backoff.duration > backoff.cap {
			backoff.duration = backoff.cap
		}
	}
	if backoff.jitter > 0 {
		duration += time.Duration(randv2.Float64() * backoff.jitter * float64(duration))
	}
	return duration
}

// ExponentialBackoffRetry is not safe for concurrent use, every lock
// acquisition needs its own strategy.
func ExponentialBackoffRetry(maxSteps int64, initBackoff, maxBackoff time.Duration, backoffFactor, jitter float64) RetryStrategy {
	return &exponentialBackoff{
		cap:      maxBackoff,
		duration: initBackoff,
		factor:   backoffFactor,
		jitter:   jitter,
		steps:    maxSteps,
	}
}

func DefaultExponentialBackoffRetry() RetryStrategy {
	return ExponentialBackoffRetry(
		5,
		10*time.Millisecond,
		200*time.Millisecond,
		2.0,
		0.1,
	)
}
