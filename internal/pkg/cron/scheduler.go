package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job represents a scheduled job
type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error

	// NextInterval, when set, is consulted after every run and the ticker is
	// reset if the interval changed.
	NextInterval func() time.Duration
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	jobs    []Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	lastRun map[string]time.Time
}

// NewScheduler creates a new cron scheduler
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:    make([]Job, 0),
		ctx:     ctx,
		cancel:  cancel,
		lastRun: make(map[string]time.Time),
	}
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.addJob(Job{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
}

// AddAdaptiveJob adds a job whose interval is re-read after every run.
func (s *Scheduler) AddAdaptiveJob(name string, interval func() time.Duration, fn func(ctx context.Context) error) {
	s.addJob(Job{
		Name:         name,
		Interval:     interval(),
		Fn:           fn,
		NextInterval: interval,
	})
}

func (s *Scheduler) addJob(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, job)
	slog.Debug("Cron job registered", "name", job.Name, "interval", job.Interval)
}

// Start begins running all scheduled jobs. Calling Start more than once has
// no further effect.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(job)
	}

	slog.Debug("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop gracefully stops all scheduled jobs and waits for in-flight runs.
// It must not be called from inside one of the scheduler's own jobs.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Debug("Cron scheduler stopped")
}

// Done is closed once Stop has been called.
func (s *Scheduler) Done() <-chan struct{} {
	return s.ctx.Done()
}

// LastRun returns when the named job last finished, or the zero time.
func (s *Scheduler) LastRun(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun[name]
}

// runJob runs a single job on its schedule
func (s *Scheduler) runJob(job Job) {
	defer s.wg.Done()

	interval := job.Interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	s.executeJob(job)

	for {
		if job.NextInterval != nil {
			if next := job.NextInterval(); next > 0 && next != interval {
				slog.Debug("Cron job interval changed", "name", job.Name, "from", interval, "to", next)
				interval = next
				ticker.Reset(interval)
			}
		}

		select {
		case <-s.ctx.Done():
			slog.Debug("Cron job stopping", "name", job.Name)
			return
		case <-ticker.C:
			s.executeJob(job)
		}
	}
}

// executeJob executes a job and logs results
func (s *Scheduler) executeJob(job Job) {
	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	slog.Debug("Cron job starting", "name", job.Name)

	if err := job.Fn(s.ctx); err != nil {
		slog.Error("Cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
	} else {
		slog.Debug("Cron job completed", "name", job.Name, "duration", time.Since(start))
	}

	s.mu.Lock()
	s.lastRun[job.Name] = time.Now()
	s.mu.Unlock()
}

// RunOnce runs all jobs once (useful for testing)
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		if err := job.Fn(ctx); err != nil {
			slog.Error("Cron job failed", "name", job.Name, "error", err)
		}
	}
}
