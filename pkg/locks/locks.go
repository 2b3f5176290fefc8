// Package locks serializes work on one product line across imports.
package locks

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockNotAcquired is returned when the wait for a lock runs out.
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a lock that expired or was taken over.
	ErrLockNotHeld = errors.New("lock not held")
)

// Locker hands out exclusive locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lock, error)
}

type Lock interface {
	Release(ctx context.Context) error
}

// WithLock runs fn while holding key.
func WithLock(ctx context.Context, locker Locker, key string, fn func(ctx context.Context) error) error {
	lock, err := locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer lock.Release(context.WithoutCancel(ctx))

	return fn(ctx)
}

func nextBackoff(backoff time.Duration) time.Duration {
	backoff *= 2
	if backoff > 500*time.Millisecond {
		backoff = 500 * time.Millisecond
	}
	return backoff
}
