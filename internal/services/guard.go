package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/logger"
)

const submitLockTTL = 30 * time.Second

// SubmitGuard rejects a second submission for the same key while one is in flight
type SubmitGuard interface {
	// Acquire returns a release func, or ErrSubmissionInProgress when the key is held
	Acquire(ctx context.Context, key string) (func(), error)
}

func visitGuardKey(ownerID, phone string) string { return "visit:" + ownerID + ":" + phone }
func closeGuardKey(userID string) string         { return "close-shift:" + userID }
func expenseGuardKey(ownerID string) string      { return "expense:" + ownerID }

// MemorySubmitGuard is a process-local guard
type MemorySubmitGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemorySubmitGuard() *MemorySubmitGuard {
	return &MemorySubmitGuard{held: make(map[string]struct{})}
}

func (g *MemorySubmitGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, ErrSubmissionInProgress
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// RedisSubmitGuard holds a redislock for the duration of the submission
type RedisSubmitGuard struct {
	locker *redislock.Client
	log    *logrus.Logger
}

func NewRedisSubmitGuard(locker *redislock.Client, log *logrus.Logger) *RedisSubmitGuard {
	return &RedisSubmitGuard{locker: locker, log: log}
}

func (g *RedisSubmitGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := g.locker.Obtain(ctx, "submit:"+key, submitLockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrSubmissionInProgress
	}
	if err != nil {
		logger.LogError(g.log, "SubmitGuard", "Acquire", "Error obtaining submit lock", key, err)
		return nil, err
	}

	return func() {
		// The request context may already be cancelled by the time we release
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.LogError(g.log, "SubmitGuard", "Release", "Error releasing submit lock", key, err)
		}
	}, nil
}
