package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/platform"
	"github.com/google/uuid"
)

// Sampler turns one gated position fix into an attributed LocationSample.
// It owns the gating order used on every tick: working hours, then
// permissions, then identity and role.
type Sampler struct {
	deps Deps
	opts Options
	now  func() time.Time

	dedupe       *deduper
	battery      atomic.Uint64 // math.Float64bits of the last reading
	lastSampleAt atomic.Int64  // unix nanos, only moves forward
}

func NewSampler(deps Deps, opts Options) *Sampler {
	opts = opts.withDefaults()
	s := &Sampler{
		deps:   deps,
		opts:   opts,
		now:    time.Now,
		dedupe: newDeduper(opts.DedupeWindow, opts.DedupeDistance),
	}
	s.battery.Store(math.Float64bits(1))
	return s
}

// Gate runs the gating checks without capturing anything and returns the
// identity samples will be attributed to.
func (s *Sampler) Gate(ctx context.Context) (tracking.Identity, error) {
	verdict := s.deps.Settings.Check(ctx)
	if !verdict.WithinWindow {
		return tracking.Identity{}, fmt.Errorf("%w: %s", tracking.ErrOutsideWorkingHours, verdict.Reason)
	}

	perms := s.deps.Permissions.Status(ctx)
	if !perms.AllGranted() {
		return tracking.Identity{}, fmt.Errorf("%w: missing %v", tracking.ErrPermissionDenied, perms.Missing())
	}

	identity, err := s.deps.Identity.Current(ctx)
	if err != nil {
		return tracking.Identity{}, err
	}
	if !identity.Role.IsTracked() {
		return tracking.Identity{}, fmt.Errorf("%w: %s", tracking.ErrRoleNotTracked, identity.Role)
	}

	return identity, nil
}

// Capture gates, reads one position and builds the sample. It returns
// ErrDuplicateSample when the reading repeats the previous one.
func (s *Sampler) Capture(ctx context.Context, source tracking.Source) (tracking.LocationSample, error) {
	identity, err := s.Gate(ctx)
	if err != nil {
		return tracking.LocationSample{}, err
	}

	level := s.readBattery(ctx)
	req := s.request(level)

	pos, err := s.deps.Location.CurrentPosition(ctx, req)
	if err != nil {
		if errors.Is(err, tracking.ErrPositionUnavailable) {
			return tracking.LocationSample{}, err
		}
		return tracking.LocationSample{}, fmt.Errorf("%w: %v", tracking.ErrPositionUnavailable, err)
	}

	backgrounded := source == tracking.SourceBackground
	if !backgrounded && s.deps.AppState != nil {
		backgrounded = s.deps.AppState.Backgrounded()
	}

	sample, err := s.build(pos, identity, level, backgrounded, source)
	if err != nil {
		return tracking.LocationSample{}, err
	}

	if !s.dedupe.accept(sample) {
		return tracking.LocationSample{}, tracking.ErrDuplicateSample
	}

	s.advance(sample.CapturedAt)
	return sample, nil
}

// Tick captures a scheduler sample and hands it to the uploader without
// waiting for the upload.
func (s *Sampler) Tick(ctx context.Context) error {
	sample, err := s.Capture(ctx, tracking.SourceScheduler)
	if err != nil {
		return err
	}
	s.deps.Uploader.Dispatch(ctx, sample)
	return nil
}

// Interval is the current tick period, stretched while the battery is low.
func (s *Sampler) Interval() time.Duration {
	if s.lowBattery(s.lastBattery()) {
		return s.opts.LowBatteryInterval
	}
	return s.opts.SampleInterval
}

// LastSampleAt is the capture time of the newest sample built so far.
func (s *Sampler) LastSampleAt() time.Time {
	n := s.lastSampleAt.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s *Sampler) build(pos tracking.Position, identity tracking.Identity, battery float64, backgrounded bool, source tracking.Source) (tracking.LocationSample, error) {
	if identity.IsZero() {
		return tracking.LocationSample{}, tracking.ErrIdentityMissing
	}

	id, err := uuid.NewV7()
	if err != nil {
		return tracking.LocationSample{}, fmt.Errorf("failed to generate sample id: %w", err)
	}

	capturedAt := pos.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}

	var device tracking.Device
	if s.deps.Device != nil {
		device = s.deps.Device.Device()
	}

	return tracking.LocationSample{
		ID:           id.String(),
		Latitude:     pos.Latitude,
		Longitude:    pos.Longitude,
		Altitude:     pos.Altitude,
		Accuracy:     pos.Accuracy,
		Speed:        pos.Speed,
		Heading:      pos.Heading,
		CapturedAt:   capturedAt,
		Email:        identity.Email,
		Role:         identity.Role,
		Device:       device,
		BatteryLevel: battery,
		Backgrounded: backgrounded,
		Window:       s.deps.Settings.Snapshot(capturedAt),
		Source:       source,
	}, nil
}

func (s *Sampler) request(battery float64) platform.LocationRequest {
	if s.lowBattery(battery) {
		return platform.LocationRequest{
			Accuracy: platform.AccuracyBalanced,
			Timeout:  s.opts.LowBatteryCaptureTimeout,
			MaxAge:   s.opts.LowBatteryMaxAge,
		}
	}
	return platform.LocationRequest{
		Accuracy: platform.AccuracyHigh,
		Timeout:  s.opts.CaptureTimeout,
	}
}

func (s *Sampler) readBattery(ctx context.Context) float64 {
	if s.deps.Battery == nil {
		return s.lastBattery()
	}
	level, err := s.deps.Battery.Level(ctx)
	if err != nil {
		slog.Debug("Battery level unavailable", "error", err)
		return s.lastBattery()
	}
	s.battery.Store(math.Float64bits(level))
	return level
}

func (s *Sampler) lastBattery() float64 {
	return math.Float64frombits(s.battery.Load())
}

func (s *Sampler) lowBattery(level float64) bool {
	return level < s.opts.LowBatteryThreshold
}

func (s *Sampler) advance(t time.Time) {
	n := t.UnixNano()
	for {
		cur := s.lastSampleAt.Load()
		if n <= cur || s.lastSampleAt.CompareAndSwap(cur, n) {
			return
		}
	}
}
