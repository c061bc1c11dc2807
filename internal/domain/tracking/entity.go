package tracking

import (
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
)

type Role string

const (
	RoleStaff      Role = "staff"       // Field and office staff
	RoleAdmin      Role = "admin"       // Campus administrator
	RoleSuperAdmin Role = "super_admin" // Institution-wide administrator
)

var TrackedRoleValues = []string{
	string(RoleStaff),
	string(RoleAdmin),
	string(RoleSuperAdmin),
}

// IsTracked reports whether operators with this role may be tracked at all.
func (r Role) IsTracked() bool {
	switch r {
	case RoleStaff, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Identity is the minimal attribution carried by every sample.
type Identity struct {
	Email    string
	Role     Role
	CachedAt time.Time
}

func (i Identity) IsZero() bool {
	return i.Email == "" || i.Role == ""
}

// Position is one fix from the device's location provider.
type Position struct {
	Latitude   float64
	Longitude  float64
	Altitude   float64
	Accuracy   float64 // meters, 68% confidence radius
	Speed      float64 // m/s
	Heading    float64 // degrees from true north
	CapturedAt time.Time
}

type Device struct {
	Manufacturer string `json:"manufacturer" cbor:"manufacturer"`
	Model        string `json:"model" cbor:"model"`
	OSVersion    string `json:"os_version" cbor:"os_version"`
}

type Source string

const (
	SourceScheduler  Source = "scheduler"  // Forced-update tick
	SourceBackground Source = "background" // Platform background delivery
)

// LocationSample is one attributed position reading. It is a value: once
// built it is never mutated, only handed from the uploader to the offline
// queue.
type LocationSample struct {
	ID           string             `json:"id" cbor:"id"`
	Latitude     float64            `json:"latitude" cbor:"latitude"`
	Longitude    float64            `json:"longitude" cbor:"longitude"`
	Altitude     float64            `json:"altitude" cbor:"altitude"`
	Accuracy     float64            `json:"accuracy" cbor:"accuracy"`
	Speed        float64            `json:"speed" cbor:"speed"`
	Heading      float64            `json:"heading" cbor:"heading"`
	CapturedAt   time.Time          `json:"timestamp" cbor:"timestamp"`
	Email        string             `json:"user_email" cbor:"user_email"`
	Role         Role               `json:"user_role" cbor:"user_role"`
	Device       Device             `json:"device" cbor:"device"`
	BatteryLevel float64            `json:"battery_level" cbor:"battery_level"`
	Backgrounded bool               `json:"is_background" cbor:"is_background"`
	Window       workhours.Snapshot `json:"working_hours" cbor:"working_hours"`
	Source       Source             `json:"source" cbor:"source"`
}

// Attributed reports whether the sample carries an identity.
func (s LocationSample) Attributed() bool {
	return s.Email != "" && s.Role != ""
}

// QueueEntry is a sample waiting in the offline queue.
type QueueEntry struct {
	ID         int64
	Sample     LocationSample
	EnqueuedAt time.Time
}

// ========================================
// PERMISSIONS
// ========================================

type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// PermissionState is a point-in-time snapshot of the three capabilities
// tracking needs. It is always replaced whole, never patched.
type PermissionState struct {
	ForegroundLocation PermissionStatus `json:"foreground_location"`
	BackgroundLocation PermissionStatus `json:"background_location"`
	LocationServices   PermissionStatus `json:"location_services"`
	CheckedAt          time.Time        `json:"checked_at"`
}

// AllGranted is true only when every capability is granted. Partial
// location access is treated the same as none.
func (p PermissionState) AllGranted() bool {
	return p.ForegroundLocation == PermissionGranted &&
		p.BackgroundLocation == PermissionGranted &&
		p.LocationServices == PermissionGranted
}

// Missing lists the capabilities that are not granted.
func (p PermissionState) Missing() []string {
	var missing []string
	if p.ForegroundLocation != PermissionGranted {
		missing = append(missing, "foreground_location")
	}
	if p.BackgroundLocation != PermissionGranted {
		missing = append(missing, "background_location")
	}
	if p.LocationServices != PermissionGranted {
		missing = append(missing, "location_services")
	}
	return missing
}

// Undetermined is true when the operator has not yet been asked for at
// least one capability.
func (p PermissionState) Undetermined() bool {
	return p.ForegroundLocation == PermissionUndetermined ||
		p.BackgroundLocation == PermissionUndetermined ||
		p.LocationServices == PermissionUndetermined
}

// ========================================
// SESSION
// ========================================

type SessionState int32

const (
	StateIdle SessionState = iota
	StateStarting
	StateActive
	StateStopping
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}
