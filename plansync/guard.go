package plansync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/production_backend/config"
	"github.com/sirupsen/logrus"
)

const (
	syncLockKey = "lock:plansync:orders"
	syncLockTTL = 10 * time.Minute
)

// RunGuard admits one sync run at a time. The returned release func must be called once.
type RunGuard interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// localGuard serializes runs within this process.
type localGuard struct {
	mu sync.Mutex
}

func NewLocalGuard() RunGuard {
	return &localGuard{}
}

func (g *localGuard) Acquire(ctx context.Context) (func(), error) {
	if !g.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	return g.mu.Unlock, nil
}

// redisGuard extends the local guard across replicas with a Redis lock.
// Without a Redis connection it behaves like the local guard.
type redisGuard struct {
	local  localGuard
	locker func() *redislock.Client
	key    string
	ttl    time.Duration
}

func NewRedisGuard(locker func() *redislock.Client) RunGuard {
	if locker == nil {
		locker = config.GetRedisLock
	}
	return &redisGuard{locker: locker, key: syncLockKey, ttl: syncLockTTL}
}

func (g *redisGuard) Acquire(ctx context.Context) (func(), error) {
	releaseLocal, err := g.local.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	client := g.locker()
	if client == nil {
		config.GetLogger().WithFields(logrus.Fields{
			"field": "plansync.guard",
		}).Warn("redis lock not ready; serializing sync in-process only")
		return releaseLocal, nil
	}

	lock, err := client.Obtain(ctx, g.key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		releaseLocal()
		return nil, ErrSyncInProgress
	}
	if err != nil {
		releaseLocal()
		return nil, err
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.GetLogger().WithFields(logrus.Fields{
				"field": "plansync.guard",
			}).Warn("failed to release redis lock: " + err.Error())
		}
		releaseLocal()
	}, nil
}
