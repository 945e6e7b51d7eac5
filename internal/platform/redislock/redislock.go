package redislock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pathwise/pathwise-backend/internal/platform/logger"
)

// ErrNotAcquired is returned when the lock is held by another owner and the
// acquire wait elapses.
var ErrNotAcquired = errors.New("redislock: lock not acquired")

// Locker serializes writers on a key. Signal batches for one learner must not
// interleave, so the write path acquires the learner's lock first.
type Locker interface {
	// Acquire blocks until the lock is held or wait elapses. The returned
	// release func is safe to call once; it only releases a lock this call
	// still owns.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(context.Context) error, error)
}

type redisLocker struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisLocker(client *redis.Client, baseLog *logger.Logger) Locker {
	return &redisLocker{client: client, log: baseLog.With("component", "redislock")}
}

// Release compares the stored owner token before deleting, so an expired
// lock reacquired by someone else is never released by the old owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(context.Context) error, error) {
	owner := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, key, owner, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			release := func(releaseCtx context.Context) error {
				_, err := releaseScript.Run(releaseCtx, l.client, []string{key}, owner).Result()
				return err
			}
			return release, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// localLocker is the single-process fallback used when no Redis address is
// configured, and in tests.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocalLocker() Locker {
	return &localLocker{locks: make(map[string]chan struct{})}
}

func (l *localLocker) Acquire(ctx context.Context, key string, _ time.Duration, wait time.Duration) (func(context.Context) error, error) {
	timeout := time.NewTimer(wait)
	defer timeout.Stop()

	for {
		l.mu.Lock()
		held, ok := l.locks[key]
		if !ok {
			done := make(chan struct{})
			l.locks[key] = done
			l.mu.Unlock()

			var once sync.Once
			release := func(context.Context) error {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, key)
					l.mu.Unlock()
					close(done)
				})
				return nil
			}
			return release, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, ErrNotAcquired
		case <-held:
		}
	}
}
