package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/scaregistry/backend/internal/domain/casework"
	"go.uber.org/zap"
)

// IntervalTrigger queues a full expiry sweep every interval, and once at
// start when RunOnStart is set.
type IntervalTrigger struct {
	interval   time.Duration
	runOnStart bool
	scheduler  *Scheduler
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   time.Time
}

// NewIntervalTrigger creates a trigger bound to scheduler
func NewIntervalTrigger(interval time.Duration, runOnStart bool, scheduler *Scheduler, logger *zap.Logger) *IntervalTrigger {
	return &IntervalTrigger{
		interval:   interval,
		runOnStart: runOnStart,
		scheduler:  scheduler,
		logger:     logger,
	}
}

// Start starts the trigger loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	if t.interval <= 0 {
		t.mu.Unlock()
		return ErrInvalidConfig
	}
	t.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Expiry sweep trigger started",
		zap.Duration("interval", t.interval),
		zap.Bool("run_on_start", t.runOnStart),
	)
	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Expiry sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastRun returns when a sweep was last queued
func (t *IntervalTrigger) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRun
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.runOnStart {
		t.trigger()
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.trigger()
		}
	}
}

func (t *IntervalTrigger) trigger() {
	t.mu.Lock()
	t.lastRun = time.Now()
	t.mu.Unlock()

	jobs, err := t.scheduler.ScheduleSweep("")
	if err != nil {
		t.logger.Error("Failed to queue expiry sweep", zap.Int("queued", len(jobs)), zap.Error(err))
		return
	}
	t.logger.Debug("Expiry sweep queued", zap.Int("jobs", len(jobs)))
}

// TriggerManual queues a sweep outside the interval, for one entity or all
func (t *IntervalTrigger) TriggerManual(entity casework.EntityType) ([]*Job, error) {
	return t.scheduler.ScheduleSweep(entity)
}
