package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
)

// Run supervises the session until ctx is cancelled: every settings poll
// interval an Idle, non-suspended session is started if gating passes.
// Stopping is left to the session's own jobs. On return the session is
// closed without clearing the durable tracking flag.
func (s *Session) Run(ctx context.Context) error {
	should, err := s.deps.State.ShouldTrack(ctx)
	if err != nil {
		slog.Warn("Failed to read tracking flag", "error", err)
	} else if should {
		slog.Info("Resuming tracking after restart")
	}

	ticker := time.NewTicker(s.opts.SettingsPollInterval)
	defer ticker.Stop()

	for {
		s.reconcile(ctx)

		select {
		case <-ctx.Done():
			return s.Close(context.Background())
		case <-ticker.C:
		}
	}
}

func (s *Session) reconcile(ctx context.Context) {
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()

	if paused || s.State() != tracking.StateIdle {
		return
	}

	if err := s.start(ctx); err != nil && ctx.Err() == nil {
		slog.Debug("Tracking not started", "reason", err)
	}
}

// Login caches the operator identity and starts tracking. A gating failure
// does not fail the login; it is reported through Snapshot.
func (s *Session) Login(ctx context.Context, req tracking.LoginRequest) (tracking.SessionStatus, error) {
	if err := req.Validate(); err != nil {
		return tracking.SessionStatus{}, err
	}

	identity, err := s.deps.Identity.Remember(ctx, req.Email, tracking.Role(req.Role))
	if err != nil {
		return tracking.SessionStatus{}, err
	}

	if err := s.Start(ctx); err != nil {
		slog.Info("Logged in, tracking not started", "email", identity.Email, "reason", err)
	}
	return s.Snapshot(ctx), nil
}

// RequestPermissions runs the consent flow and returns the resulting
// snapshot. Whatever is still missing afterwards goes to the remediator.
// It never starts tracking by itself.
func (s *Session) RequestPermissions(ctx context.Context) (tracking.PermissionState, error) {
	granted, err := s.deps.Permissions.RequestAll(ctx)
	if err != nil {
		return tracking.PermissionState{}, fmt.Errorf("failed to request location permission: %w", err)
	}

	state := s.deps.Permissions.Status(ctx)
	if !granted {
		slog.Info("Location permission still missing after request", "missing", state.Missing())
		s.deps.Remediator.Request(ctx, state.Missing())
	}
	return state, nil
}

// Logout forgets the identity first, so no concurrent tick can attribute a
// new sample, then stops the session.
func (s *Session) Logout(ctx context.Context) error {
	forgetErr := s.deps.Identity.Forget(ctx)

	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()

	if err := s.Stop(ctx, "logout"); err != nil {
		return err
	}
	if err := s.deps.State.SetTracking(ctx, false); err != nil {
		slog.Error("Failed to clear tracking flag", "error", err)
	}
	return forgetErr
}

// Snapshot reports the session for the control API.
func (s *Session) Snapshot(ctx context.Context) tracking.SessionStatus {
	stats := s.deps.Uploader.Stats()
	status := tracking.SessionStatus{
		State:          s.State().String(),
		QueuedSamples:  s.deps.Uploader.Queue().Len(ctx),
		SamplesSent:    stats.Sent,
		SamplesQueued:  stats.Queued,
		SamplesDropped: stats.Dropped,
		TaskRestarts:   s.watchdog.Restarts(),
		StopReason:     s.stopReason.Load().(string),
	}

	if t := s.sampler.LastSampleAt(); !t.IsZero() {
		at := t.UTC().Format(time.RFC3339)
		status.LastSampleAt = &at
	}

	if identity, err := s.deps.Identity.Current(ctx); err == nil {
		status.Email = identity.Email
		status.Role = string(identity.Role)
	}

	perms := s.deps.Permissions.Status(ctx)
	status.Permissions = &perms

	return status
}
