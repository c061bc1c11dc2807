// Package platform abstracts the host capabilities the tracking agent
// depends on: position fixes, permission state, battery, device identity,
// foreground/background state, background task registration and the
// navigation hook used for permission remediation.
package platform

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
)

type Accuracy int

const (
	AccuracyHigh Accuracy = iota
	AccuracyBalanced
)

func (a Accuracy) String() string {
	if a == AccuracyBalanced {
		return "balanced"
	}
	return "high"
}

// LocationRequest tunes a single fix. MaxAge allows a cached fix younger
// than the given age to be returned instead of waking the receiver.
type LocationRequest struct {
	Accuracy Accuracy
	Timeout  time.Duration
	MaxAge   time.Duration
}

type LocationProvider interface {
	CurrentPosition(ctx context.Context, req LocationRequest) (tracking.Position, error)
}

type PermissionProvider interface {
	Query(ctx context.Context) (tracking.PermissionState, error)

	// Request runs the consent flow and returns the resulting state. It may
	// block until the operator responds.
	Request(ctx context.Context) (tracking.PermissionState, error)
}

type BatteryProvider interface {
	// Level returns the charge in the range 0..1.
	Level(ctx context.Context) (float64, error)
}

type DeviceInfoProvider interface {
	Device() tracking.Device
}

type AppStateProvider interface {
	Backgrounded() bool
}

// BackgroundTasks registers recurring background execution slots. The host
// may kill a registered task without notice, so callers health-check it
// with Alive.
type BackgroundTasks interface {
	Register(name string, interval time.Duration, fn func(ctx context.Context)) error
	Unregister(name string) error
	Alive(name string) bool
}

type Navigator interface {
	ShowPermissionScreen(ctx context.Context, missing []string) error
}
