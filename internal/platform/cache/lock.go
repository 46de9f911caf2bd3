package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("platform/cache: lock held by another process")

// Locker hands out exclusive, expiring Redis locks.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker wraps a Redis client. ttl bounds how long a crashed holder can
// block others.
func NewLocker(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Locker{client: redislock.New(client), ttl: ttl}
}

// WithLock runs fn while holding key. The lock context is cancelled if the
// lock cannot be refreshed before it expires.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%w: %s", ErrLocked, key)
	}
	if err != nil {
		return fmt.Errorf("platform/cache: obtain %s: %w", key, err)
	}
	defer func() {
		_ = lock.Release(context.Background())
	}()

	lockCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.keepAlive(lockCtx, cancel, lock)

	return fn(lockCtx)
}

func (l *Locker) keepAlive(ctx context.Context, cancel context.CancelFunc, lock *redislock.Lock) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lock.Refresh(ctx, l.ttl, nil); err != nil {
				cancel()
				return
			}
		}
	}
}
