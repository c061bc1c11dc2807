//go:build linux

package platform

import (
	"os"
	"strings"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"golang.org/x/sys/unix"
)

// HostDevice describes the machine via uname(2) and the DMI vendor strings.
type HostDevice struct {
	device tracking.Device
}

func NewHostDevice() *HostDevice {
	d := tracking.Device{
		Manufacturer: readTrimmed("/sys/devices/virtual/dmi/id/sys_vendor"),
		Model:        readTrimmed("/sys/devices/virtual/dmi/id/product_name"),
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		d.OSVersion = unix.ByteSliceToString(uts.Sysname[:]) + " " + unix.ByteSliceToString(uts.Release[:])
		if d.Model == "" {
			d.Model = unix.ByteSliceToString(uts.Machine[:])
		}
	}
	if d.Manufacturer == "" {
		d.Manufacturer = "unknown"
	}

	return &HostDevice{device: d}
}

// Device implements DeviceInfoProvider.
func (h *HostDevice) Device() tracking.Device {
	return h.device
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
