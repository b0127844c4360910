package persist

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/benz9527/xsymtab/lib/infra"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps a snapshot per string key. The concurrent writers
// of the same snapshot are serialized by a lock key next to it.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	lockTTL   time.Duration
	retryFunc func() RetryStrategy
	closed    atomic.Bool
}

type RedisStoreOpt func(*RedisStore)

func WithRedisStoreKeyPrefix(prefix string) RedisStoreOpt {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisStoreTTL expires the snapshots, zero keeps them forever.
func WithRedisStoreTTL(ttl time.Duration) RedisStoreOpt {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithRedisStoreLock changes the lock lease and the retry strategy of
// every Save.
func WithRedisStoreLock(ttl time.Duration, retry func() RetryStrategy) RedisStoreOpt {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
		if retry != nil {
			s.retryFunc = retry
		}
	}
}

// NewRedisStore owns the client, Close closes it.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOpt) (*RedisStore, error) {
	if client == nil {
		return nil, infra.NewErrorStack("[persist] redis client is nil")
	}
	s := &RedisStore{
		client:    client,
		prefix:    "xsymtab:snapshot:",
		lockTTL:   5 * time.Second,
		retryFunc: DefaultExponentialBackoffRetry,
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	return s, nil
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

func (s *RedisStore) Save(ctx context.Context, name string, data []byte) (err error) {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err = validateName(name); err != nil {
		return err
	}
	lock := newRedisLock(s.client, s.key(name)+":lock", s.lockTTL, s.retryFunc())
	if err = lock.Lock(ctx); errors.Is(err, redis.ErrClosed) {
		return multierr.Combine(ErrStoreClosed, err)
	} else if err != nil {
		return err
	}
	defer func() {
		if uerr := lock.Unlock(context.WithoutCancel(ctx)); uerr != nil && err == nil {
			err = uerr
		}
	}()
	if err = s.client.Set(ctx, s.key(name), data, s.ttl).Err(); err != nil {
		return infra.WrapErrorStackWithMessage(err, "[persist] unable to save snapshot "+name)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	} else if errors.Is(err, redis.ErrClosed) {
		return nil, multierr.Combine(ErrStoreClosed, err)
	} else if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[persist] unable to load snapshot "+name)
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := validateName(name); err != nil {
		return err
	}
	n, err := s.client.Del(ctx, s.key(name)).Result()
	if errors.Is(err, redis.ErrClosed) {
		return multierr.Combine(ErrStoreClosed, err)
	} else if err != nil {
		return infra.WrapErrorStackWithMessage(err, "[persist] unable to delete snapshot "+name)
	}
	if n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrStoreClosed
	}
	err := s.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return ErrStoreClosed
	}
	return infra.WrapErrorStack(err)
}
