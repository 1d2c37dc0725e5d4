// Package scheduler runs the periodic expiry sweep on a small worker pool.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	caseapp "github.com/scaregistry/backend/internal/application/casework"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// JobStatus represents the status of a sweep job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job sweeps one entity type
type Job struct {
	ID          uuid.UUID
	Entity      casework.EntityType
	Status      JobStatus
	Error       string
	Expired     int
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
}

// NewJob creates a pending job
func NewJob(entity casework.EntityType, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Entity:     entity,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete(expired int) {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
	j.Expired = expired
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry reports whether a failed job has retries left
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// Sweeper expires lapsed cases of one entity type and returns how many it moved
type Sweeper interface {
	Sweep(ctx context.Context, entity casework.EntityType) (int, error)
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	Interval          time.Duration
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:           true,
		Interval:          time.Hour,
		MaxConcurrentJobs: 2,
		JobTimeout:        10 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
	}
}

// ConfigFrom maps the application configuration onto SchedulerConfig,
// keeping defaults for unset values
func ConfigFrom(cfg config.SchedulerConfig) SchedulerConfig {
	out := DefaultSchedulerConfig()
	out.Enabled = cfg.Enabled
	if cfg.ExpirySweepInterval > 0 {
		out.Interval = cfg.ExpirySweepInterval
	}
	if cfg.MaxConcurrentJobs > 0 {
		out.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	}
	if cfg.JobTimeout > 0 {
		out.JobTimeout = cfg.JobTimeout
	}
	if cfg.RetryAttempts >= 0 {
		out.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		out.RetryDelay = cfg.RetryDelay
	}
	return out
}

// Validate checks the configuration
func (c SchedulerConfig) Validate() error {
	if c.Interval <= 0 || c.MaxConcurrentJobs <= 0 || c.JobTimeout <= 0 {
		return fmt.Errorf("%w: interval, workers and job timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Scheduler executes sweep jobs on a worker pool. Jobs failing with a
// retryable error are resubmitted after RetryDelay.
type Scheduler struct {
	config  SchedulerConfig
	sweeper Sweeper
	logger  *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	onDone    func(*Job)
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithJobHook calls fn after every job reaches a final state
func WithJobHook(fn func(*Job)) Option {
	return func(s *Scheduler) {
		s.onDone = fn
	}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, sweeper Sweeper, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
		jobs:    make(chan *Job, 32),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Expiry scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Expiry scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Expiry scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the worker pool is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob queues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("entity", string(job.Entity)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleSweep queues one job per entity with an expiry. An empty entity
// queues every one of them.
func (s *Scheduler) ScheduleSweep(entity casework.EntityType) ([]*Job, error) {
	entities := []casework.EntityType{entity}
	if entity == "" {
		entities = caseapp.ExpiryEntities
	} else if !slices.Contains(caseapp.ExpiryEntities, entity) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	jobs := make([]*Job, 0, len(entities))
	for _, e := range entities {
		job := NewJob(e, s.config.RetryAttempts)
		if err := s.SubmitJob(job); err != nil {
			return jobs, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.Start()
	s.logger.Info("Processing sweep job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("entity", string(job.Entity)),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	expired, err := s.sweeper.Sweep(jobCtx, job.Entity)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("Sweep job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("entity", string(job.Entity)),
			zap.Int("expired", expired),
			zap.Error(err),
		)
		if shared.IsRetryable(err) && job.ShouldRetry() {
			s.retryLater(job)
			return
		}
		s.finished(job)
		return
	}

	job.Complete(expired)
	s.logger.Info("Sweep job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("entity", string(job.Entity)),
		zap.Int("expired", expired),
	)
	s.finished(job)
}

func (s *Scheduler) retryLater(job *Job) {
	job.RetryCount++
	job.Status = JobStatusPending
	s.logger.Info("Sweep job scheduled for retry",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.Duration("delay", s.config.RetryDelay),
	)
	time.AfterFunc(s.config.RetryDelay, func() {
		if err := s.SubmitJob(job); err != nil {
			s.logger.Warn("Failed to re-queue sweep job",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	})
}

func (s *Scheduler) finished(job *Job) {
	if s.onDone != nil {
		s.onDone(job)
	}
}
