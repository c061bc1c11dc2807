package tracking

import (
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/platform"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/service/identity"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/service/permission"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/service/upload"
	workhoursService "github.com/cmlabs-hris/hris-tracking-agent/internal/service/workhours"
)

// BackgroundTaskName is the platform registration owned by an active
// session.
const BackgroundTaskName = "location-delivery"

// Intervals and capture tuning for an active session. Zero values fall back
// to the defaults in withDefaults.
type Options struct {
	SampleInterval           time.Duration
	LowBatteryInterval       time.Duration
	LowBatteryThreshold      float64
	CaptureTimeout           time.Duration
	LowBatteryCaptureTimeout time.Duration
	LowBatteryMaxAge         time.Duration

	SettingsPollInterval   time.Duration
	PermissionPollInterval time.Duration
	DrainInterval          time.Duration
	WatchdogInterval       time.Duration
	BackgroundInterval     time.Duration

	// DedupeWindow of zero disables deduplication.
	DedupeWindow   time.Duration
	DedupeDistance float64 // meters
}

func (o Options) withDefaults() Options {
	def := func(d *time.Duration, v time.Duration) {
		if *d <= 0 {
			*d = v
		}
	}
	def(&o.SampleInterval, 20*time.Second)
	def(&o.LowBatteryInterval, 30*time.Second)
	def(&o.CaptureTimeout, 10*time.Second)
	def(&o.LowBatteryCaptureTimeout, 20*time.Second)
	def(&o.LowBatteryMaxAge, time.Minute)
	def(&o.SettingsPollInterval, time.Minute)
	def(&o.PermissionPollInterval, time.Minute)
	def(&o.DrainInterval, 30*time.Second)
	def(&o.WatchdogInterval, time.Minute)
	def(&o.BackgroundInterval, time.Minute)

	if o.LowBatteryThreshold <= 0 {
		o.LowBatteryThreshold = 0.2
	}
	if o.DedupeDistance <= 0 {
		o.DedupeDistance = 10
	}
	return o
}

// stallThreshold is how long the sample job may go without completing a run
// before the watchdog considers the job scheduler dead.
func (o Options) stallThreshold() time.Duration {
	slowest := o.SampleInterval
	if o.LowBatteryInterval > slowest {
		slowest = o.LowBatteryInterval
	}
	return 3*slowest + o.LowBatteryCaptureTimeout
}

// Deps are the collaborators a session coordinates. Each cache owns its own
// snapshot; the session only reads through them.
type Deps struct {
	Settings    *workhoursService.SettingsCache
	Permissions *permission.Gate
	Remediator  *permission.Remediator
	Identity    *identity.Cache
	Uploader    *upload.Uploader
	State       tracking.StateRepository

	Location platform.LocationProvider
	Battery  platform.BatteryProvider
	Device   platform.DeviceInfoProvider
	AppState platform.AppStateProvider
	Tasks    platform.BackgroundTasks
}
