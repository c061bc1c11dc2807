package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/platform"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stillLocation struct {
	calls int
	last  platform.LocationRequest
}

func (s *stillLocation) CurrentPosition(ctx context.Context, req platform.LocationRequest) (tracking.Position, error) {
	s.calls++
	s.last = req
	return tracking.Position{Latitude: -6.2, Longitude: 106.8, Accuracy: 5, CapturedAt: time.Now()}, nil
}

func TestSampler_CaptureBuildsAttributedSample(t *testing.T) {
	h := newHarness(t)
	h.login(t, tracking.RoleAdmin)
	s := NewSampler(h.deps, fastOptions())

	sample, err := s.Capture(context.Background(), tracking.SourceScheduler)
	require.NoError(t, err)

	assert.True(t, validator.IsValidUUID(sample.ID))
	assert.Equal(t, "staff@example.com", sample.Email)
	assert.Equal(t, tracking.RoleAdmin, sample.Role)
	assert.Equal(t, "Acme", sample.Device.Manufacturer)
	assert.InDelta(t, 0.9, sample.BatteryLevel, 1e-9)
	assert.True(t, sample.Backgrounded)
	assert.Equal(t, tracking.SourceScheduler, sample.Source)
	assert.True(t, sample.Window.IsWorkingDay)
	assert.Equal(t, "00:00", sample.Window.StartTime)
	assert.Equal(t, sample.CapturedAt.Unix(), s.LastSampleAt().Unix())
}

func TestSampler_ForegroundFlag(t *testing.T) {
	h := newHarness(t)
	h.login(t, tracking.RoleStaff)
	h.deps.AppState.(*platform.AppState).SetForeground(true)
	s := NewSampler(h.deps, fastOptions())

	sample, err := s.Capture(context.Background(), tracking.SourceScheduler)
	require.NoError(t, err)
	assert.False(t, sample.Backgrounded)

	bg, err := s.Capture(context.Background(), tracking.SourceBackground)
	require.NoError(t, err)
	assert.True(t, bg.Backgrounded)
}

func TestSampler_NeverBuildsSampleWithoutIdentity(t *testing.T) {
	h := newHarness(t)
	s := NewSampler(h.deps, fastOptions())

	_, err := s.Capture(context.Background(), tracking.SourceScheduler)
	assert.ErrorIs(t, err, tracking.ErrIdentityMissing)
	assert.Zero(t, h.location.callCount())

	require.ErrorIs(t, s.Tick(context.Background()), tracking.ErrIdentityMissing)
	h.deps.Uploader.Wait()
	assert.Zero(t, h.sender.sends.Load())
}

func TestSampler_BuildRequiresIdentity(t *testing.T) {
	h := newHarness(t)
	s := NewSampler(h.deps, fastOptions())

	_, err := s.build(tracking.Position{}, tracking.Identity{}, 1, false, tracking.SourceScheduler)
	assert.ErrorIs(t, err, tracking.ErrIdentityMissing)
}

func TestSampler_LowBatteryPolicy(t *testing.T) {
	h := newHarness(t)
	h.login(t, tracking.RoleStaff)
	loc := &stillLocation{}
	h.deps.Location = loc
	h.deps.Battery = fixedBattery{level: 0.15}

	opts := Options{DedupeWindow: 0}
	s := NewSampler(h.deps, opts)
	assert.Equal(t, 20*time.Second, s.Interval())

	_, err := s.Capture(context.Background(), tracking.SourceScheduler)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, s.Interval())
	assert.Equal(t, platform.AccuracyBalanced, loc.last.Accuracy)
	assert.Equal(t, 20*time.Second, loc.last.Timeout)
	assert.Equal(t, time.Minute, loc.last.MaxAge)
}

func TestSampler_HealthyBatteryPolicy(t *testing.T) {
	h := newHarness(t)
	h.login(t, tracking.RoleStaff)
	loc := &stillLocation{}
	h.deps.Location = loc

	s := NewSampler(h.deps, Options{})
	_, err := s.Capture(context.Background(), tracking.SourceScheduler)
	require.NoError(t, err)

	assert.Equal(t, platform.AccuracyHigh, loc.last.Accuracy)
	assert.Equal(t, 10*time.Second, loc.last.Timeout)
	assert.Zero(t, loc.last.MaxAge)
}

func TestSampler_DropsNearDuplicate(t *testing.T) {
	h := newHarness(t)
	h.login(t, tracking.RoleStaff)
	h.deps.Location = &stillLocation{}

	s := NewSampler(h.deps, Options{DedupeWindow: 5 * time.Second})

	_, err := s.Capture(context.Background(), tracking.SourceScheduler)
	require.NoError(t, err)
	_, err = s.Capture(context.Background(), tracking.SourceBackground)
	assert.ErrorIs(t, err, tracking.ErrDuplicateSample)
}

func TestDeduper(t *testing.T) {
	base := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	at := func(offset time.Duration, lat float64) tracking.LocationSample {
		return tracking.LocationSample{Latitude: lat, Longitude: 106.8, CapturedAt: base.Add(offset)}
	}

	d := newDeduper(5*time.Second, 10)
	assert.True(t, d.accept(at(0, -6.2)))
	assert.False(t, d.accept(at(2*time.Second, -6.2)))
	assert.True(t, d.accept(at(3*time.Second, -6.3)), "moved far")
	assert.True(t, d.accept(at(10*time.Second, -6.3)), "outside window")

	off := newDeduper(0, 10)
	assert.True(t, off.accept(at(0, -6.2)))
	assert.True(t, off.accept(at(0, -6.2)))
}

func TestBackgroundDelivery_RunOnce(t *testing.T) {
	h := newHarness(t)
	h.login(t, tracking.RoleStaff)
	ctx := context.Background()
	b := NewBackgroundDelivery(h.deps, fastOptions())

	require.NoError(t, b.RunOnce(ctx))
	assert.Zero(t, h.location.callCount(), "tracking flag not set")

	require.NoError(t, h.deps.State.SetTracking(ctx, true))
	require.NoError(t, b.RunOnce(ctx))
	assert.EqualValues(t, 1, h.sender.sends.Load())

	h.sender.down.Store(true)
	require.NoError(t, b.RunOnce(ctx))
	assert.Equal(t, 1, h.deps.Uploader.Queue().Len(ctx))

	h.sender.down.Store(false)
	require.NoError(t, b.RunOnce(ctx))
	assert.Zero(t, h.deps.Uploader.Queue().Len(ctx))
	assert.EqualValues(t, 3, h.sender.sends.Load())
}

func TestBackgroundDelivery_GatedWithoutIdentity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.deps.State.SetTracking(ctx, true))

	require.NoError(t, NewBackgroundDelivery(h.deps, fastOptions()).RunOnce(ctx))
	assert.Zero(t, h.location.callCount())
	assert.Zero(t, h.sender.sends.Load())
}
