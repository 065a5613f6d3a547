package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of the most recent run of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
	// JobStatusSkipped means another replica held the lease
	JobStatusSkipped JobStatus = "SKIPPED"
)

// RunFunc performs one pass of a job
type RunFunc func(ctx context.Context) error

// Job is a recurring background task
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      RunFunc
}

// JobState is a snapshot of a job's last run, for health reporting
type JobState struct {
	Name          string     `json:"name"`
	Status        JobStatus  `json:"status"`
	LastStartedAt *time.Time `json:"last_started_at,omitempty"`
	LastEndedAt   *time.Time `json:"last_ended_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Runs          int64      `json:"runs"`
}

// Config holds configuration for the scheduler
type Config struct {
	Enabled bool
	// LeaseTTL bounds how long one replica owns a job run; it must exceed
	// the job timeout or two replicas may overlap
	LeaseTTL time.Duration
	// RunOnStart runs every job immediately instead of waiting one interval
	RunOnStart bool
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		LeaseTTL:   2 * time.Minute,
		RunOnStart: true,
	}
}

// Scheduler runs interval jobs. Each run takes a named lease first, so with
// several replicas a given job executes on at most one of them at a time.
type Scheduler struct {
	config Config
	lease  shared.Lease
	logger *zap.Logger

	jobs   []Job
	states map[string]*JobState

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// New creates a new Scheduler
func New(config Config, lease shared.Lease, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		config: config,
		lease:  lease,
		logger: logger,
		states: make(map[string]*JobState),
	}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: job %q needs a name, runner and positive interval", ErrInvalidConfig, job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, ok := s.states[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	s.jobs = append(s.jobs, job)
	s.states[job.Name] = &JobState{Name: job.Name, Status: JobStatusPending}
	return nil
}

// Start starts one loop per registered job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.isRunning = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels the job loops and waits for in-flight runs to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the job loops are active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// States returns a snapshot of every job's last run
func (s *Scheduler) States() []JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobState, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *s.states[job.Name])
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.RunOnce(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce runs job if this replica can take its lease. Failures are logged
// and recorded; they never stop the loop.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) JobStatus {
	leaseName := "sweep:" + job.Name
	acquired, err := s.lease.Acquire(ctx, leaseName, s.config.LeaseTTL)
	if err != nil {
		s.logger.Error("Failed to acquire job lease",
			zap.String("job", job.Name),
			zap.Error(err))
		s.finish(job.Name, time.Now(), JobStatusFailed, err)
		return JobStatusFailed
	}
	if !acquired {
		s.logger.Debug("Job lease held elsewhere, skipping run", zap.String("job", job.Name))
		s.setStatus(job.Name, JobStatusSkipped)
		return JobStatusSkipped
	}
	defer func() {
		// Release even if ctx was cancelled mid-run
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lease.Release(releaseCtx, leaseName); err != nil {
			s.logger.Warn("Failed to release job lease",
				zap.String("job", job.Name),
				zap.Error(err))
		}
	}()

	started := time.Now()
	s.start(job.Name, started)

	runCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	if err := s.safeRun(runCtx, job); err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		s.finish(job.Name, started, JobStatusFailed, err)
		return JobStatusFailed
	}

	s.finish(job.Name, started, JobStatusSuccess, nil)
	return JobStatusSuccess
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}

func (s *Scheduler) start(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[name]
	if st == nil {
		return
	}
	st.Status = JobStatusRunning
	st.LastStartedAt = &at
}

func (s *Scheduler) finish(name string, started time.Time, status JobStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[name]
	if st == nil {
		return
	}
	ended := time.Now()
	if st.LastStartedAt == nil {
		st.LastStartedAt = &started
	}
	st.LastEndedAt = &ended
	st.Status = status
	st.Runs++
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
}

func (s *Scheduler) setStatus(name string, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.states[name]; st != nil {
		st.Status = status
	}
}
