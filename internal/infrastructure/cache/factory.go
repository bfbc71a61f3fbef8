package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionCoordination bundles the owner lock and progress tracker. Both
// live in Redis when it is enabled so several instances can serve the
// same owner.
type SessionCoordination struct {
	Locker   reconcile.OwnerLocker
	Progress reconcile.ProgressTracker
	client   *redis.Client
}

// NewSessionCoordination builds the Redis or in-process implementations.
func NewSessionCoordination(redisCfg config.RedisConfig, lockCfg config.LockConfig, logger *zap.Logger) (*SessionCoordination, error) {
	if !redisCfg.Enabled {
		logger.Info("Redis disabled, session lock and progress are in-process")
		return &SessionCoordination{
			Locker:   NewLocalOwnerLock(lockCfg.WaitTimeout),
			Progress: NewMemoryProgress(),
		}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Session coordination using Redis", zap.String("addr", redisCfg.Addr()))
	return &SessionCoordination{
		Locker:   NewRedisOwnerLock(client, lockCfg.TTL, lockCfg.WaitTimeout, logger),
		Progress: NewRedisProgress(client, logger),
		client:   client,
	}, nil
}

// Close releases the Redis connection if one was opened
func (s *SessionCoordination) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Ping checks the Redis connection. In-process coordination is always up.
func (s *SessionCoordination) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}
