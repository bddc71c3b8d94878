package plansync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/production_backend/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenGuard struct{}

func (brokenGuard) Acquire(ctx context.Context) (func(), error) {
	return nil, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func errorEntries(hook *logtest.Hook, level logrus.Level) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

func TestLocalGuardAdmitsOneRun(t *testing.T) {
	g := NewLocalGuard()
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	_, err = g.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	release()
	release2, err := g.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestRedisGuardFallsBackWithoutRedis(t *testing.T) {
	g := NewRedisGuard(func() *redislock.Client { return nil })
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	_, err = g.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)
	release()

	release, err = g.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestRunLogsGuardFailure(t *testing.T) {
	testutil.SetupTestDB(t)
	engine := newTestEngine(t, &planningStub{feedBody: feedBody()}, &fakeClock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}, WithGuard(brokenGuard{}))
	logger, hook := logtest.NewNullLogger()
	engine.logger = logger

	_, err := engine.Run(context.Background(), "manual")
	require.Error(t, err)
	assert.Equal(t, 1, errorEntries(hook, logrus.ErrorLevel))
	assert.Empty(t, syncLogs(t))
}

func TestSchedulerLogsFailedRuns(t *testing.T) {
	testutil.SetupTestDB(t)
	engine := newTestEngine(t, &planningStub{feedBody: feedBody()}, &fakeClock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}, WithGuard(brokenGuard{}))
	engineLogger, _ := logtest.NewNullLogger()
	engine.logger = engineLogger
	logger, hook := logtest.NewNullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewScheduler(engine, logger, 5*time.Millisecond).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return errorEntries(hook, logrus.WarnLevel) > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
