package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Defaults for Redis locks.
const (
	DefaultTTL   = 30 * time.Second
	retryBackoff = 50 * time.Millisecond
	keyPrefix    = "inventura:lock:"
)

// Redis is a Locker backed by redislock. Locks expire after the TTL if the
// holder dies without releasing them.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedis returns a Redis locker using rdb.
func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: redislock.New(rdb), ttl: ttl}
}

// Dial connects to a Redis server and checks it answers.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Lock retries until key is obtained or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	l, err := r.client.Obtain(ctx, keyPrefix+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryBackoff),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("lock %s is busy: %w", key, err)
	}
	if err != nil {
		return nil, fmt.Errorf("obtaining lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := l.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				slog.Warn("failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}
