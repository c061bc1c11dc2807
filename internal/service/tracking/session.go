package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/cron"
)

// Session is the tracking state machine: Idle → Starting → Active →
// Stopping → Idle. Transitions are serialized by mu; the state is mirrored
// in an atomic so scheduled jobs can read it without taking mu. Jobs never
// call Stop synchronously, since Stop waits for them to finish.
type Session struct {
	deps     Deps
	opts     Options
	sampler  *Sampler
	watchdog *Watchdog

	mu         sync.Mutex
	state      atomic.Int32
	generation atomic.Uint64
	paused     bool
	guard      *cron.Scheduler

	// bgMu guards the job scheduler and the background registration, which
	// the watchdog may replace while the session is Active.
	bgMu          sync.Mutex
	jobs          *cron.Scheduler
	jobsStartedAt time.Time

	stopPending atomic.Bool
	stopReason  atomic.Value // string
}

func NewSession(deps Deps, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		deps:    deps,
		opts:    opts,
		sampler: NewSampler(deps, opts),
	}
	s.watchdog = NewWatchdog(s, deps.Tasks)
	s.stopReason.Store("")
	return s
}

func (s *Session) State() tracking.SessionState {
	return tracking.SessionState(s.state.Load())
}

func (s *Session) Sampler() *Sampler {
	return s.sampler
}

// Start begins tracking if gating passes. It is a no-op while Starting or
// Active. On a gating failure the session returns to Idle with nothing
// registered and the gating error is returned. Start also lifts a
// suspension, so the supervisor may start the session again. Capabilities
// the operator was never asked for are requested before gating.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()

	if s.State() == tracking.StateIdle && s.deps.Permissions.Status(ctx).Undetermined() {
		if _, err := s.RequestPermissions(ctx); err != nil {
			slog.Warn("Permission request failed", "error", err)
		}
	}
	return s.start(ctx)
}

func (s *Session) start(ctx context.Context) error {
	s.mu.Lock()
	switch s.State() {
	case tracking.StateActive, tracking.StateStarting:
		s.mu.Unlock()
		return nil
	}
	s.setState(tracking.StateStarting)
	gen := s.generation.Load()
	s.mu.Unlock()

	// Gating may touch the network; a Stop arriving meanwhile wins.
	identity, gateErr := s.sampler.Gate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation.Load() != gen {
		slog.Info("Tracking start superseded by stop")
		return tracking.ErrStartSuperseded
	}
	if gateErr != nil {
		s.setState(tracking.StateIdle)
		s.stopReason.Store(gateErr.Error())
		return gateErr
	}

	s.activate(ctx)
	s.stopReason.Store("")
	slog.Info("Tracking session started", "email", identity.Email, "role", identity.Role)
	return nil
}

// Stop cancels every job and registration, clears the durable tracking
// flag and leaves the session Idle. Calling it while Idle does nothing.
func (s *Session) Stop(ctx context.Context, reason string) error {
	return s.stop(ctx, reason, true)
}

// Suspend stops the session and keeps the supervisor from restarting it
// until Start or Login is called.
func (s *Session) Suspend(ctx context.Context, reason string) error {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()

	return s.Stop(ctx, reason)
}

// Close tears the session down for process exit. The durable flag is left
// as is so that the next process resumes tracking, and in-flight uploads
// are allowed to reach the offline queue.
func (s *Session) Close(ctx context.Context) error {
	err := s.stop(ctx, "shutdown", false)
	s.deps.Uploader.Wait()
	return err
}

func (s *Session) stop(ctx context.Context, reason string, clearFlag bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation.Add(1)

	switch s.State() {
	case tracking.StateIdle:
		return nil
	case tracking.StateStarting:
		s.setState(tracking.StateIdle)
		s.stopReason.Store(reason)
		if clearFlag {
			s.clearTrackingFlag(ctx)
		}
		return nil
	}

	s.setState(tracking.StateStopping)
	s.deactivate(ctx, clearFlag)
	s.setState(tracking.StateIdle)
	s.stopReason.Store(reason)

	slog.Info("Tracking session stopped", "reason", reason)
	return nil
}

// activate runs with mu held.
func (s *Session) activate(ctx context.Context) {
	s.setState(tracking.StateActive)

	s.bgMu.Lock()
	s.jobs = s.newJobs()
	s.jobs.Start()
	s.jobsStartedAt = time.Now()
	s.registerBackground()
	s.bgMu.Unlock()

	s.guard = cron.NewScheduler()
	s.guard.AddJob("watchdog", s.opts.WatchdogInterval, s.watchdog.Check)
	s.guard.Start()

	if err := s.deps.State.SetTracking(ctx, true); err != nil {
		slog.Error("Failed to persist tracking flag", "error", err)
	}
}

// deactivate runs with mu held. The watchdog goes first so it cannot
// re-register anything being torn down.
func (s *Session) deactivate(ctx context.Context, clearFlag bool) {
	if s.guard != nil {
		s.guard.Stop()
		s.guard = nil
	}

	s.bgMu.Lock()
	if s.jobs != nil {
		s.jobs.Stop()
		s.jobs = nil
	}
	if err := s.deps.Tasks.Unregister(BackgroundTaskName); err != nil {
		slog.Error("Failed to unregister background task", "error", err)
	}
	s.bgMu.Unlock()

	if clearFlag {
		s.clearTrackingFlag(ctx)
	}
}

func (s *Session) clearTrackingFlag(ctx context.Context) {
	if err := s.deps.State.SetTracking(context.WithoutCancel(ctx), false); err != nil {
		slog.Error("Failed to clear tracking flag", "error", err)
	}
}

func (s *Session) newJobs() *cron.Scheduler {
	jobs := cron.NewScheduler()
	jobs.AddAdaptiveJob("sample", s.sampler.Interval, s.sampleTick)
	jobs.AddJob("settings-poll", s.opts.SettingsPollInterval, s.pollSettings)
	jobs.AddJob("permission-poll", s.opts.PermissionPollInterval, s.pollPermissions)
	jobs.AddJob("offline-drain", s.opts.DrainInterval, s.drainQueue)
	return jobs
}

// registerBackground runs with bgMu held.
func (s *Session) registerBackground() {
	if err := s.deps.Tasks.Register(BackgroundTaskName, s.opts.BackgroundInterval, s.backgroundDelivery); err != nil {
		slog.Error("Failed to register background task", "error", err)
	}
}

func (s *Session) setState(state tracking.SessionState) {
	s.state.Store(int32(state))
}

// stopAsync stops an Active session from inside a job.
func (s *Session) stopAsync(reason string) {
	if s.State() != tracking.StateActive {
		return
	}
	if !s.stopPending.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.stopPending.Store(false)
		_ = s.Stop(context.Background(), reason)
	}()
}

func (s *Session) sampleTick(ctx context.Context) error {
	return s.handleSampleErr(ctx, s.sampler.Tick(ctx))
}

func (s *Session) backgroundDelivery(ctx context.Context) {
	sample, err := s.sampler.Capture(ctx, tracking.SourceBackground)
	if err != nil {
		_ = s.handleSampleErr(ctx, err)
		return
	}
	s.deps.Uploader.Dispatch(ctx, sample)
}

// handleSampleErr turns a failed capture into a stop, a skipped tick or a
// job error.
func (s *Session) handleSampleErr(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tracking.ErrPermissionDenied):
		s.deps.Remediator.Request(ctx, s.deps.Permissions.Status(ctx).Missing())
		s.stopAsync(err.Error())
	case gatingFailure(err):
		s.stopAsync(err.Error())
	case errors.Is(err, tracking.ErrDuplicateSample):
		slog.Debug("Skipping duplicate sample")
	case errors.Is(err, tracking.ErrPositionUnavailable):
		slog.Warn("Position unavailable, skipping tick", "error", err)
	case errors.Is(err, context.Canceled):
	default:
		return err
	}
	return nil
}

func (s *Session) pollSettings(ctx context.Context) error {
	if err := s.deps.Settings.Refresh(ctx); err != nil {
		slog.Warn("Settings refresh failed, keeping last schedule", "error", err)
	}
	if v := s.deps.Settings.Check(ctx); !v.WithinWindow {
		s.stopAsync(tracking.ErrOutsideWorkingHours.Error() + ": " + v.Reason)
	}
	return nil
}

func (s *Session) pollPermissions(ctx context.Context) error {
	state := s.deps.Permissions.Refresh(ctx)
	if !state.AllGranted() {
		s.deps.Remediator.Request(ctx, state.Missing())
		s.stopAsync(tracking.ErrPermissionDenied.Error())
	}
	return nil
}

func (s *Session) drainQueue(ctx context.Context) error {
	if _, err := s.deps.Uploader.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("Offline drain deferred", "error", err)
	}
	return nil
}

// restartBackground re-registers the background task. Used by the
// watchdog.
func (s *Session) restartBackground() {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()

	if s.State() != tracking.StateActive {
		return
	}
	s.registerBackground()
}

func (s *Session) jobsStalled() bool {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()

	if s.jobs == nil {
		return false
	}
	last := s.jobs.LastRun("sample")
	if last.IsZero() {
		last = s.jobsStartedAt
	}
	return time.Since(last) > s.opts.stallThreshold()
}

// restartJobs replaces a stalled job scheduler. The old one is stopped in
// the background since its stuck job may take a while to honor
// cancellation.
func (s *Session) restartJobs() {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()

	if s.State() != tracking.StateActive || s.jobs == nil {
		return
	}
	old := s.jobs
	go old.Stop()

	s.jobs = s.newJobs()
	s.jobs.Start()
	s.jobsStartedAt = time.Now()
}

func gatingFailure(err error) bool {
	return errors.Is(err, tracking.ErrOutsideWorkingHours) ||
		errors.Is(err, tracking.ErrPermissionDenied) ||
		errors.Is(err, tracking.ErrIdentityMissing) ||
		errors.Is(err, tracking.ErrIdentityExpired) ||
		errors.Is(err, tracking.ErrRoleNotTracked)
}
