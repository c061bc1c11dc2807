package tracking

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/platform"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/utils"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/repository/sqlite"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/service/identity"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/service/permission"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/service/upload"
	workhoursService "github.com/cmlabs-hris/hris-tracking-agent/internal/service/workhours"
	"github.com/stretchr/testify/require"
)

func openDocument(open bool) workhours.SettingsDocument {
	days := map[string]workhours.DayScheduleDocument{}
	for _, d := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		days[d] = workhours.DayScheduleDocument{IsWorking: open, StartTime: "00:00", EndTime: "23:59"}
	}
	return workhours.SettingsDocument{WorkingHours: days}
}

type switchableSource struct {
	mu      sync.Mutex
	doc     workhours.SettingsDocument
	block   chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (s *switchableSource) Fetch(ctx context.Context) (workhours.SettingsDocument, error) {
	s.mu.Lock()
	block, entered := s.block, s.entered
	s.mu.Unlock()

	if block != nil {
		if entered != nil {
			s.once.Do(func() { close(entered) })
		}
		select {
		case <-block:
		case <-ctx.Done():
			return workhours.SettingsDocument{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, nil
}

func (s *switchableSource) set(doc workhours.SettingsDocument) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

type switchablePermissions struct {
	mu       sync.Mutex
	state    tracking.PermissionState
	grant    bool
	requests int
}

func undetermined() tracking.PermissionState {
	return tracking.PermissionState{
		ForegroundLocation: tracking.PermissionUndetermined,
		BackgroundLocation: tracking.PermissionUndetermined,
		LocationServices:   tracking.PermissionUndetermined,
	}
}

func allGranted() tracking.PermissionState {
	return tracking.PermissionState{
		ForegroundLocation: tracking.PermissionGranted,
		BackgroundLocation: tracking.PermissionGranted,
		LocationServices:   tracking.PermissionGranted,
	}
}

func (p *switchablePermissions) Query(ctx context.Context) (tracking.PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}

// Request grants every undetermined capability when grant is set, the way
// an operator accepting the prompt would.
func (p *switchablePermissions) Request(ctx context.Context) (tracking.PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	if p.grant {
		for _, c := range []*tracking.PermissionStatus{&p.state.ForegroundLocation, &p.state.BackgroundLocation, &p.state.LocationServices} {
			if *c == tracking.PermissionUndetermined {
				*c = tracking.PermissionGranted
			}
		}
	}
	return p.state, nil
}

func (p *switchablePermissions) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *switchablePermissions) revoke() {
	p.mu.Lock()
	p.state.BackgroundLocation = tracking.PermissionDenied
	p.mu.Unlock()
}

// movingLocation walks 100m north per fix so no fix is a duplicate.
type movingLocation struct {
	mu    sync.Mutex
	lat   float64
	calls int
}

func (m *movingLocation) CurrentPosition(ctx context.Context, req platform.LocationRequest) (tracking.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lat, _ = utils.OffsetMeters(m.lat, 106.8, 100, 0)
	return tracking.Position{Latitude: m.lat, Longitude: 106.8, Accuracy: 5, CapturedAt: time.Now()}, nil
}

func (m *movingLocation) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fixedBattery struct{ level float64 }

func (b fixedBattery) Level(ctx context.Context) (float64, error) { return b.level, nil }

type fixedDevice struct{}

func (fixedDevice) Device() tracking.Device {
	return tracking.Device{Manufacturer: "Acme", Model: "T1", OSVersion: "Linux 6.1"}
}

var errCollectorDown = errors.New("collector unreachable")

type countingSender struct {
	sends atomic.Int64
	down  atomic.Bool
}

func (c *countingSender) Send(ctx context.Context, sample tracking.LocationSample) error {
	if c.down.Load() {
		return errCollectorDown
	}
	c.sends.Add(1)
	return nil
}

type countingTasks struct {
	*platform.LoopRegistry
	registers atomic.Int32
}

func (c *countingTasks) Register(name string, interval time.Duration, fn func(ctx context.Context)) error {
	c.registers.Add(1)
	return c.LoopRegistry.Register(name, interval, fn)
}

type recordingNavigator struct {
	mu    sync.Mutex
	calls [][]string
}

func (n *recordingNavigator) ShowPermissionScreen(ctx context.Context, missing []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, missing)
	return nil
}

func (n *recordingNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type harness struct {
	deps     Deps
	source   *switchableSource
	perms    *switchablePermissions
	location *movingLocation
	sender   *countingSender
	tasks    *countingTasks
	nav      *recordingNavigator
}

func fastOptions() Options {
	return Options{
		SampleInterval:         10 * time.Millisecond,
		LowBatteryInterval:     15 * time.Millisecond,
		SettingsPollInterval:   20 * time.Millisecond,
		PermissionPollInterval: 20 * time.Millisecond,
		DrainInterval:          20 * time.Millisecond,
		WatchdogInterval:       time.Hour,
		BackgroundInterval:     time.Hour,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(ctx, db))

	h := &harness{
		source:   &switchableSource{doc: openDocument(true)},
		perms:    &switchablePermissions{state: allGranted()},
		location: &movingLocation{lat: -6.2},
		sender:   &countingSender{},
		tasks:    &countingTasks{LoopRegistry: platform.NewLoopRegistry()},
		nav:      &recordingNavigator{},
	}

	queue := upload.NewOfflineQueue(sqlite.NewOfflineQueueRepository(db), 50)
	uploader := upload.NewUploader(h.sender, queue, upload.Options{
		MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond,
	})
	remediator := permission.NewRemediator(h.nav)
	remediator.MarkReady(ctx)

	h.deps = Deps{
		Settings:    workhoursService.NewSettingsCache(h.source, time.Millisecond, nil),
		Permissions: permission.NewGate(h.perms, time.Hour, nil),
		Remediator:  remediator,
		Identity:    identity.NewCache(sqlite.NewIdentityRepository(db), 24*time.Hour, nil),
		Uploader:    uploader,
		State:       sqlite.NewAgentStateRepository(db),
		Location:    h.location,
		Battery:     fixedBattery{level: 0.9},
		Device:      fixedDevice{},
		AppState:    platform.NewAppState(),
		Tasks:       h.tasks,
	}

	t.Cleanup(func() {
		uploader.Wait()
		h.tasks.Close()
		db.Close()
	})
	return h
}

func (h *harness) login(t *testing.T, role tracking.Role) {
	t.Helper()
	_, err := h.deps.Identity.Remember(context.Background(), "staff@example.com", role)
	require.NoError(t, err)
}
