// Package jobs runs the periodic background work of the API server.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/metrics"
)

// Job is a unit of periodic work
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Runner polls each job on its own ticker. At most maxConcurrent runs are in
// flight at once.
type Runner struct {
	jobs       []Job
	retryDelay time.Duration
	sem        *semaphore.Weighted
	mu         sync.RWMutex
	running    bool
}

// NewRunner creates a runner for jobs. A failed run waits retryDelay before
// the job's ticker is consulted again.
func NewRunner(retryDelay time.Duration, maxConcurrent int, jobs ...Job) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{
		jobs:       jobs,
		retryDelay: retryDelay,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Run blocks until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("job runner already running")
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	logger.Info("Starting background jobs", "jobs", len(r.jobs))

	var wg sync.WaitGroup
	for _, job := range r.jobs {
		job := job
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.poll(ctx, job)
		}()
	}
	wg.Wait()

	logger.Info("Background jobs stopped")
	return nil
}

func (r *Runner) poll(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	// Initial immediate run
	r.runOnce(ctx, job)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.runOnce(ctx, job); err != nil && r.retryDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(r.retryDelay):
				}
			}
		}
	}
}

// runOnce executes a single run of job and records its outcome
func (r *Runner) runOnce(ctx context.Context, job Job) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.sem.Release(1)

	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		status = "cancelled"
	default:
		status = "error"
		logger.Error("Background job failed", "job", job.Name(), "error", err)
	}
	metrics.RecordJobRun(job.Name(), status, duration)
	logger.Debug("Background job completed", "job", job.Name(), "duration_ms", duration.Milliseconds())
	return err
}

// IsRunning returns whether the runner is currently running
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}
