package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fulfildesk/backend/internal/infrastructure/cache"
	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/fulfildesk/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSweeper struct {
	mu        sync.Mutex
	cancels   int
	thresh    time.Duration
	batch     int
	purges    int
	chats     int
	cancelErr error
}

func (f *fakeSweeper) AutoCancelStale(_ context.Context, threshold time.Duration, batchSize int) (telemetry.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	f.thresh = threshold
	f.batch = batchSize
	return telemetry.SweepResult{Job: JobAutoCancel, Processed: 2}, f.cancelErr
}

func (f *fakeSweeper) PurgeOrphans(context.Context, time.Duration, int) (telemetry.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	return telemetry.SweepResult{Job: JobOrphanPurge}, nil
}

func (f *fakeSweeper) PurgeChat(context.Context, time.Duration, int) (telemetry.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats++
	return telemetry.SweepResult{Job: JobChatRetention, Processed: 7}, nil
}

type failingLease struct{}

func (failingLease) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func (failingLease) Release(context.Context, string) error { return nil }

func newTestScheduler(t *testing.T) (*Scheduler, *cache.InMemoryLease, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	lease := cache.NewInMemoryLease()
	cfg := DefaultConfig()
	cfg.RunOnStart = false
	return New(cfg, lease, zap.New(core)), lease, logs
}

func TestRegister_Validation(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	noop := func(context.Context) error { return nil }

	assert.ErrorIs(t, s.Register(Job{Interval: time.Second, Run: noop}), ErrInvalidConfig)
	assert.ErrorIs(t, s.Register(Job{Name: "a", Run: noop}), ErrInvalidConfig)
	assert.ErrorIs(t, s.Register(Job{Name: "a", Interval: time.Second}), ErrInvalidConfig)

	require.NoError(t, s.Register(Job{Name: "a", Interval: time.Second, Run: noop}))
	assert.ErrorIs(t, s.Register(Job{Name: "a", Interval: time.Second, Run: noop}), ErrDuplicateJob)
}

func TestRunOnce_SkipsWhenLeaseHeld(t *testing.T) {
	s, lease, _ := newTestScheduler(t)
	var runs int32
	job := Job{Name: "auto_cancel", Interval: time.Minute, Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}
	require.NoError(t, s.Register(job))

	ok, err := lease.Acquire(context.Background(), "sweep:auto_cancel", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, JobStatusSkipped, s.RunOnce(context.Background(), job))
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))
}

func TestRunOnce_ReleasesLeaseAfterRun(t *testing.T) {
	s, lease, _ := newTestScheduler(t)
	job := Job{Name: "auto_cancel", Interval: time.Minute, Run: func(context.Context) error { return nil }}
	require.NoError(t, s.Register(job))

	assert.Equal(t, JobStatusSuccess, s.RunOnce(context.Background(), job))

	ok, err := lease.Acquire(context.Background(), "sweep:auto_cancel", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lease should be free once the run finished")

	states := s.States()
	require.Len(t, states, 1)
	assert.Equal(t, JobStatusSuccess, states[0].Status)
	assert.Equal(t, int64(1), states[0].Runs)
	assert.NotNil(t, states[0].LastEndedAt)
}

func TestRunOnce_RecordsFailureAndPanic(t *testing.T) {
	s, _, logs := newTestScheduler(t)
	failing := Job{Name: "failing", Interval: time.Minute, Run: func(context.Context) error {
		return errors.New("boom")
	}}
	panicking := Job{Name: "panicking", Interval: time.Minute, Run: func(context.Context) error {
		panic("unexpected")
	}}
	require.NoError(t, s.Register(failing))
	require.NoError(t, s.Register(panicking))

	assert.Equal(t, JobStatusFailed, s.RunOnce(context.Background(), failing))
	assert.Equal(t, JobStatusFailed, s.RunOnce(context.Background(), panicking))

	states := s.States()
	assert.Equal(t, "boom", states[0].LastError)
	assert.Contains(t, states[1].LastError, "panicked")
	assert.Equal(t, 2, logs.FilterMessage("Scheduled job failed").Len())
}

func TestRunOnce_LeaseErrorFailsRun(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := New(DefaultConfig(), failingLease{}, zap.New(core))
	job := Job{Name: "auto_cancel", Interval: time.Minute, Run: func(context.Context) error {
		t.Fatal("job must not run without the lease")
		return nil
	}}
	require.NoError(t, s.Register(job))

	assert.Equal(t, JobStatusFailed, s.RunOnce(context.Background(), job))
	assert.Equal(t, 1, logs.FilterMessage("Failed to acquire job lease").Len())
}

func TestRunOnce_AppliesTimeout(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	job := Job{Name: "slow", Interval: time.Minute, Timeout: 10 * time.Millisecond, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	require.NoError(t, s.Register(job))

	assert.Equal(t, JobStatusFailed, s.RunOnce(context.Background(), job))
	assert.Contains(t, s.States()[0].LastError, "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	core, _ := observer.New(zap.InfoLevel)
	s := New(Config{Enabled: true, LeaseTTL: time.Minute, RunOnStart: true}, cache.NewInMemoryLease(), zap.New(core))
	var runs int32
	require.NoError(t, s.Register(Job{Name: "tick", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Register(Job{Name: "late", Interval: time.Second, Run: func(context.Context) error { return nil }}), ErrSchedulerRunning)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())

	// Stopping twice is harmless
	require.NoError(t, s.Stop(ctx))
}

func TestStart_Disabled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(Config{Enabled: false}, cache.NewInMemoryLease(), zap.New(core))
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Equal(t, 1, logs.FilterMessage("Scheduler is disabled").Len())
}

func TestAutoCancelJob_UsesConfig(t *testing.T) {
	sweeper := &fakeSweeper{}
	job := AutoCancelJob(sweeper, config.SchedulerConfig{
		AutoCancelInterval:  time.Minute,
		AutoCancelThreshold: 10 * time.Minute,
	}, zap.NewNop())

	assert.Equal(t, JobAutoCancel, job.Name)
	assert.Equal(t, time.Minute, job.Interval)
	assert.Equal(t, defaultJobTimeout, job.Timeout)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, sweeper.cancels)
	assert.Equal(t, 10*time.Minute, sweeper.thresh)
	assert.Equal(t, defaultSweepBatch, sweeper.batch)
}

func TestAutoCancelJob_PropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{cancelErr: errors.New("db unavailable")}
	job := AutoCancelJob(sweeper, config.SchedulerConfig{AutoCancelInterval: time.Minute, BatchSize: 50}, zap.NewNop())

	assert.EqualError(t, job.Run(context.Background()), "db unavailable")
	assert.Equal(t, 50, sweeper.batch)
}

func TestRetentionJobs(t *testing.T) {
	sweeper := &fakeSweeper{}
	jobs := RetentionJobs(sweeper, config.RetentionConfig{
		SweepInterval:       time.Hour,
		OrphanAttachmentTTL: 24 * time.Hour,
		ChatMessageTTL:      90 * 24 * time.Hour,
	}, 0, zap.NewNop())
	require.Len(t, jobs, 2)
	assert.Equal(t, JobOrphanPurge, jobs[0].Name)
	assert.Equal(t, JobChatRetention, jobs[1].Name)

	for _, j := range jobs {
		require.NoError(t, j.Run(context.Background()))
	}
	assert.Equal(t, 1, sweeper.purges)
	assert.Equal(t, 1, sweeper.chats)

	onlyOrphans := RetentionJobs(sweeper, config.RetentionConfig{SweepInterval: time.Hour, OrphanAttachmentTTL: time.Hour}, 0, zap.NewNop())
	require.Len(t, onlyOrphans, 1)
	assert.Equal(t, JobOrphanPurge, onlyOrphans[0].Name)
}
