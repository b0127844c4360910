package persist

// References:
// https://github.com/bsm/redislock
// https://redis.io/docs/latest/develop/use/patterns/distributed-locks/

import (
	"context"
	"errors"
	randv2 "math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/benz9527/xsymtab/lib/infra"
)

var ErrLockAcquireFailed = errors.New("[persist] failed to acquire snapshot lock")

// Only the holder of the token is able to release the lock.
var luaLockRelease = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisLock is a lease on a single key, it expires by ttl if the
// holder never releases it.
type redisLock struct {
	client   redis.UniversalClient
	key      string
	token    string
	ttl      time.Duration
	strategy RetryStrategy
	locked   atomic.Bool
}

func newRedisLock(client redis.UniversalClient, key string, ttl time.Duration, strategy RetryStrategy) *redisLock {
	if strategy == nil {
		strategy = NoRetry()
	}
	return &redisLock{
		client:   client,
		key:      key,
		token:    strconv.FormatUint(randv2.Uint64(), 36) + "&" + strconv.FormatInt(time.Now().UnixNano(), 36),
		ttl:      ttl,
		strategy: strategy,
	}
}

func (l *redisLock) Lock(ctx context.Context) error {
	var (
		ticker *time.Ticker
		merr   error
	)
	for {
		ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
		if errors.Is(err, redis.ErrClosed) {
			return infra.WrapErrorStackWithMessage(multierr.Combine(ErrLockAcquireFailed, err), "[persist] lock "+l.key+" on a closed client")
		} else if err != nil {
			merr = multierr.Append(merr, err)
		} else if ok {
			l.locked.Store(true)
			return nil
		}

		backoff := l.strategy.Next()
		if backoff.Milliseconds() < 1 {
			return infra.WrapErrorStackWithMessage(multierr.Combine(ErrLockAcquireFailed, merr), "[persist] lock "+l.key+" retry reach to max")
		}
		if ticker == nil {
			ticker = time.NewTicker(backoff)
			defer ticker.Stop()
		} else {
			ticker.Reset(backoff)
		}

		select {
		case <-ctx.Done():
			return infra.WrapErrorStack(multierr.Combine(ctx.Err(), merr))
		case <-ticker.C:
		}
	}
}

func (l *redisLock) Unlock(ctx context.Context) error {
	if !l.locked.CompareAndSwap(true, false) {
		return infra.NewErrorStack("[persist] attempt to unlock a no acquired lock")
	}
	if _, err := luaLockRelease.Run(ctx, l.client, []string{l.key}, l.token).Result(); err != nil && !errors.Is(err, redis.Nil) {
		return infra.WrapErrorStack(err)
	}
	return nil
}
