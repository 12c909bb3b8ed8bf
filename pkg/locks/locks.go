// Package locks serializes work on a single production run across
// instances. The database compare-and-swap stays the source of truth; a
// lock only keeps concurrent writers from burning through their retries.
package locks

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when another holder keeps the key past the retry window.
var ErrBusy = errors.New("resource is busy")

// Locker obtains a named lock. release is always non-nil on success.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

// Noop grants every lock immediately. Used when Redis is not configured.
type Noop struct{}

func (Noop) Obtain(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// RedisLocker is a Locker backed by bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	prefix string
}

// NewRedisLocker holds locks for ttl and retries every backoff until ctx or
// the ttl expires.
func NewRedisLocker(rdb *redis.Client, ttl, backoff time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(backoff), int(ttl/backoff)),
		prefix: "crusher:lock:",
	}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrBusy
	} else if err != nil {
		return nil, err
	}
	return func() {
		// a detached context so a cancelled request still releases
		_ = lock.Release(context.Background())
	}, nil
}
