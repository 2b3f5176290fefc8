package locks

import (
	"context"
	"sync"
	"time"
)

// LocalLocker locks within one process. Waiters give up after the wait timeout
// or when their context ends.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		slots: map[string]chan struct{}{},
		wait:  wait,
	}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}
	return s
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	s := l.slot(key)

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case s <- struct{}{}:
		return &localLock{slot: s}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, ErrLockNotAcquired
	}
}

type localLock struct {
	once sync.Once
	slot chan struct{}
}

func (l *localLock) Release(_ context.Context) error {
	released := false
	l.once.Do(func() {
		<-l.slot
		released = true
	})
	if !released {
		return ErrLockNotHeld
	}
	return nil
}
