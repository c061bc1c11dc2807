//go:build !linux

package platform

import (
	"runtime"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
)

type HostDevice struct {
	device tracking.Device
}

func NewHostDevice() *HostDevice {
	return &HostDevice{device: tracking.Device{
		Manufacturer: "unknown",
		Model:        runtime.GOARCH,
		OSVersion:    runtime.GOOS,
	}}
}

// Device implements DeviceInfoProvider.
func (h *HostDevice) Device() tracking.Device {
	return h.device
}
