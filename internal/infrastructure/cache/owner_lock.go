package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockKeyPrefix = "reconcile:session:"

// RedisOwnerLock serializes session operations per owner across instances.
type RedisOwnerLock struct {
	locker *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisOwnerLock creates a lock backed by Redis. ttl bounds how long a
// crashed holder can block the owner; wait is how long Lock retries.
func NewRedisOwnerLock(client redis.UniversalClient, ttl, wait time.Duration, logger *zap.Logger) *RedisOwnerLock {
	return &RedisOwnerLock{
		locker: redislock.New(client),
		ttl:    ttl,
		wait:   wait,
		logger: logger,
	}
}

// Lock obtains the owner's lock or returns shared.ErrSessionBusy once the
// wait window passes.
func (l *RedisOwnerLock) Lock(ctx context.Context, ownerID uuid.UUID) (func(), error) {
	key := lockKeyPrefix + ownerID.String()

	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), retries(l.wait, 100*time.Millisecond)),
	}
	lock, err := l.locker.Obtain(ctx, key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, shared.ErrSessionBusy
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain session lock: %w", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(lock, key, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// The request context may be gone by now.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("Failed to release session lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

// keepAlive extends the lock every third of its TTL until stop closes, so a
// long batch keeps the owner's session for as long as it runs.
func (l *RedisOwnerLock) keepAlive(lock *redislock.Lock, key string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(refreshInterval(l.ttl))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := lock.Refresh(ctx, l.ttl, nil)
			cancel()
			if err != nil {
				l.logger.Warn("Failed to refresh session lock", zap.String("key", key), zap.Error(err))
				if errors.Is(err, redislock.ErrNotObtained) {
					return
				}
			}
		}
	}
}

func refreshInterval(ttl time.Duration) time.Duration {
	interval := ttl / 3
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	return interval
}

func retries(wait, step time.Duration) int {
	if wait <= 0 {
		return 0
	}
	return int(wait / step)
}

// LocalOwnerLock is the single-instance lock used when Redis is disabled.
type LocalOwnerLock struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
	wait  time.Duration
}

// NewLocalOwnerLock creates an in-process owner lock
func NewLocalOwnerLock(wait time.Duration) *LocalOwnerLock {
	return &LocalOwnerLock{
		slots: make(map[uuid.UUID]chan struct{}),
		wait:  wait,
	}
}

// Lock obtains the owner's lock, waiting up to the configured window.
func (l *LocalOwnerLock) Lock(ctx context.Context, ownerID uuid.UUID) (func(), error) {
	slot := l.slot(ownerID)

	var timeout <-chan time.Time
	if l.wait > 0 {
		t := time.NewTimer(l.wait)
		defer t.Stop()
		timeout = t.C
	} else {
		closed := make(chan time.Time)
		close(closed)
		timeout = closed
	}

	select {
	case slot <- struct{}{}:
	default:
		select {
		case slot <- struct{}{}:
		case <-timeout:
			return nil, shared.ErrSessionBusy
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(func() { <-slot }) }, nil
}

func (l *LocalOwnerLock) slot(ownerID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[ownerID]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[ownerID] = s
	}
	return s
}

var (
	_ reconcile.OwnerLocker = (*RedisOwnerLock)(nil)
	_ reconcile.OwnerLocker = (*LocalOwnerLock)(nil)
)
