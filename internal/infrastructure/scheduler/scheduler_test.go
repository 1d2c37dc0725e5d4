package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSweeper returns queued results per entity, then zero
type fakeSweeper struct {
	mu      sync.Mutex
	calls   map[casework.EntityType]int
	results map[casework.EntityType][]error
}

func newFakeSweeper() *fakeSweeper {
	return &fakeSweeper{calls: map[casework.EntityType]int{}, results: map[casework.EntityType][]error{}}
}

func (f *fakeSweeper) Sweep(_ context.Context, entity casework.EntityType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[entity]++
	if queued := f.results[entity]; len(queued) > 0 {
		f.results[entity] = queued[1:]
		return 0, queued[0]
	}
	return 2, nil
}

func (f *fakeSweeper) callCount(entity casework.EntityType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[entity]
}

// collectJobs gathers finished jobs from the scheduler hook
type collectJobs struct {
	mu   sync.Mutex
	jobs []*Job
}

func (c *collectJobs) add(j *Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = append(c.jobs, j)
}

func (c *collectJobs) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.jobs)
}

func testConfig() SchedulerConfig {
	cfg := DefaultSchedulerConfig()
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.JobTimeout = time.Second
	return cfg
}

func startScheduler(t *testing.T, sweeper Sweeper, done *collectJobs) *Scheduler {
	t.Helper()
	s := NewScheduler(testConfig(), sweeper, zap.NewNop(), WithJobHook(done.add))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestScheduler_ScheduleSweep(t *testing.T) {
	t.Run("queues every entity with an expiry", func(t *testing.T) {
		sweeper := newFakeSweeper()
		done := &collectJobs{}
		s := startScheduler(t, sweeper, done)

		jobs, err := s.ScheduleSweep("")
		require.NoError(t, err)
		require.Len(t, jobs, 2)

		require.Eventually(t, func() bool { return done.len() == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, 1, sweeper.callCount(casework.EntityRegistration))
		assert.Equal(t, 1, sweeper.callCount(casework.EntityOperatorLicense))
		for _, j := range done.jobs {
			assert.Equal(t, JobStatusSuccess, j.Status)
			assert.Equal(t, 2, j.Expired)
		}
	})

	t.Run("rejects entities without an expiry", func(t *testing.T) {
		s := startScheduler(t, newFakeSweeper(), &collectJobs{})
		_, err := s.ScheduleSweep(casework.EntityInspection)
		assert.ErrorIs(t, err, ErrUnknownEntity)
	})

	t.Run("stopped scheduler refuses jobs", func(t *testing.T) {
		s := NewScheduler(testConfig(), newFakeSweeper(), zap.NewNop())
		_, err := s.ScheduleSweep(casework.EntityRegistration)
		assert.ErrorIs(t, err, ErrSchedulerNotRunning)
	})
}

func TestScheduler_Retry(t *testing.T) {
	t.Run("store outages are retried", func(t *testing.T) {
		sweeper := newFakeSweeper()
		sweeper.results[casework.EntityRegistration] = []error{shared.NewStoreUnavailableError(errors.New("dial tcp"))}
		done := &collectJobs{}
		s := startScheduler(t, sweeper, done)

		_, err := s.ScheduleSweep(casework.EntityRegistration)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return done.len() == 1 }, time.Second, 5*time.Millisecond)
		job := done.jobs[0]
		assert.Equal(t, JobStatusSuccess, job.Status)
		assert.Equal(t, 1, job.RetryCount)
		assert.Equal(t, 2, sweeper.callCount(casework.EntityRegistration))
	})

	t.Run("other failures are final", func(t *testing.T) {
		sweeper := newFakeSweeper()
		sweeper.results[casework.EntityOperatorLicense] = []error{errors.New("decode failed")}
		done := &collectJobs{}
		s := startScheduler(t, sweeper, done)

		_, err := s.ScheduleSweep(casework.EntityOperatorLicense)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return done.len() == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, JobStatusFailed, done.jobs[0].Status)
		assert.Equal(t, "decode failed", done.jobs[0].Error)
		assert.Equal(t, 1, sweeper.callCount(casework.EntityOperatorLicense))
	})
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(testConfig(), newFakeSweeper(), zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())

	bad := testConfig()
	bad.MaxConcurrentJobs = 0
	assert.ErrorIs(t, NewScheduler(bad, newFakeSweeper(), zap.NewNop()).Start(context.Background()), ErrInvalidConfig)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.SchedulerConfig{
		Enabled:             true,
		ExpirySweepInterval: 15 * time.Minute,
		MaxConcurrentJobs:   4,
	})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Interval)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, DefaultSchedulerConfig().JobTimeout, cfg.JobTimeout)
	assert.Equal(t, 0, cfg.RetryAttempts)
}

func TestIntervalTrigger(t *testing.T) {
	sweeper := newFakeSweeper()
	done := &collectJobs{}
	s := startScheduler(t, sweeper, done)

	trigger := NewIntervalTrigger(20*time.Millisecond, true, s, zap.NewNop())
	require.NoError(t, trigger.Start(context.Background()))

	require.Eventually(t, func() bool { return done.len() >= 4 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))
	assert.False(t, trigger.LastRun().IsZero())

	jobs, err := trigger.TriggerManual(casework.EntityRegistration)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	assert.ErrorIs(t, NewIntervalTrigger(0, false, s, zap.NewNop()).Start(context.Background()), ErrInvalidConfig)
}
