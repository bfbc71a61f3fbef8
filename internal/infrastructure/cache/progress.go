package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	progressKeyPrefix = "reconcile:progress:"
	progressTTL       = 6 * time.Hour
)

// MemoryProgress tracks batch progress in process.
type MemoryProgress struct {
	mu    sync.RWMutex
	state map[uuid.UUID]*reconcile.ProgressSnapshot
}

// NewMemoryProgress creates an in-memory progress tracker
func NewMemoryProgress() *MemoryProgress {
	return &MemoryProgress{state: make(map[uuid.UUID]*reconcile.ProgressSnapshot)}
}

// Start resets the owner's counters for a new batch
func (p *MemoryProgress) Start(_ context.Context, ownerID uuid.UUID, total int) (reconcile.ProgressHandle, error) {
	p.mu.Lock()
	p.state[ownerID] = &reconcile.ProgressSnapshot{Total: total, Running: true}
	p.mu.Unlock()
	return &memoryHandle{p: p, owner: ownerID}, nil
}

// Snapshot returns the owner's progress, zero when no batch ran
func (p *MemoryProgress) Snapshot(_ context.Context, ownerID uuid.UUID) (reconcile.ProgressSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.state[ownerID]; ok {
		return *s, nil
	}
	return reconcile.ProgressSnapshot{}, nil
}

type memoryHandle struct {
	p     *MemoryProgress
	owner uuid.UUID
}

func (h *memoryHandle) Advance(context.Context) {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	if s, ok := h.p.state[h.owner]; ok && s.Done < s.Total {
		s.Done++
	}
}

func (h *memoryHandle) Finish(context.Context) {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	if s, ok := h.p.state[h.owner]; ok {
		s.Running = false
	}
}

// RedisProgress tracks batch progress in a Redis hash so any instance can
// answer progress polls.
type RedisProgress struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisProgress creates a Redis backed progress tracker
func NewRedisProgress(client redis.UniversalClient, logger *zap.Logger) *RedisProgress {
	return &RedisProgress{client: client, logger: logger}
}

// Start resets the owner's hash for a new batch
func (p *RedisProgress) Start(ctx context.Context, ownerID uuid.UUID, total int) (reconcile.ProgressHandle, error) {
	key := progressKeyPrefix + ownerID.String()
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "done", 0, "total", total, "running", 1)
		pipe.Expire(ctx, key, progressTTL)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &redisHandle{p: p, key: key}, nil
}

// Snapshot reads the owner's hash
func (p *RedisProgress) Snapshot(ctx context.Context, ownerID uuid.UUID) (reconcile.ProgressSnapshot, error) {
	vals, err := p.client.HGetAll(ctx, progressKeyPrefix+ownerID.String()).Result()
	if err != nil {
		return reconcile.ProgressSnapshot{}, err
	}
	done, _ := strconv.Atoi(vals["done"])
	total, _ := strconv.Atoi(vals["total"])
	return reconcile.ProgressSnapshot{
		Done:    done,
		Total:   total,
		Running: vals["running"] == "1",
	}, nil
}

type redisHandle struct {
	p   *RedisProgress
	key string
}

// Progress writes are best effort; a failed write only skews the display.
func (h *redisHandle) Advance(ctx context.Context) {
	if err := h.p.client.HIncrBy(ctx, h.key, "done", 1).Err(); err != nil {
		h.p.logger.Warn("Failed to advance progress", zap.String("key", h.key), zap.Error(err))
	}
}

func (h *redisHandle) Finish(ctx context.Context) {
	if err := h.p.client.HSet(ctx, h.key, "running", 0).Err(); err != nil {
		h.p.logger.Warn("Failed to finish progress", zap.String("key", h.key), zap.Error(err))
	}
}

var (
	_ reconcile.ProgressTracker = (*MemoryProgress)(nil)
	_ reconcile.ProgressTracker = (*RedisProgress)(nil)
)
