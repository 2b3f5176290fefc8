package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger ectologger.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Infof("Connected to Redis at %s", addr)
	return rdb, nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker locks across processes with SET NX and a TTL. A holder that
// dies loses the lock when the TTL runs out.
type RedisLocker struct {
	rdb       redis.Cmdable
	keyPrefix string
	ttl       time.Duration
	wait      time.Duration
	logger    ectologger.Logger
}

func NewRedisLocker(rdb redis.Cmdable, keyPrefix string, ttl, wait time.Duration, logger ectologger.Logger) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &RedisLocker{
		rdb:       rdb,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		wait:      wait,
		logger:    logger,
	}
}

// Acquire retries with capped exponential backoff until the wait timeout.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	lockKey := l.keyPrefix + key
	deadline := time.Now().Add(l.wait)
	backoff := 10 * time.Millisecond

	for {
		lock, err := l.tryAcquire(ctx, lockKey)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) || !time.Now().Before(deadline) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff = nextBackoff(backoff)
		}
	}
}

func (l *RedisLocker) tryAcquire(ctx context.Context, lockKey string) (*redisLock, error) {
	value := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, lockKey, value, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.logger.WithContext(ctx).Debugf("Acquired lock: %s", lockKey)
	return &redisLock{locker: l, key: lockKey, value: value}, nil
}

type redisLock struct {
	locker *RedisLocker
	key    string
	value  string
}

// Release deletes the key only if this lock still owns it.
func (lock *redisLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.locker.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.locker.logger.WithContext(ctx).Debugf("Released lock: %s", lock.key)
	return nil
}
