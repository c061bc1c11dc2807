package tracking

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/validator"
)

// ========================================
// COLLECTOR DTOs
// ========================================

// UploadSampleRequest is the flat JSON body the agent posts per sample.
type UploadSampleRequest struct {
	LocationSample
}

func (r *UploadSampleRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id must be a UUIDv7",
		})
	}

	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.Accuracy < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "accuracy",
			Message: "accuracy must not be negative",
		})
	}

	if r.CapturedAt.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp is required",
		})
	}

	if !validator.IsValidEmail(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_email",
			Message: "user_email must be a valid email",
		})
	}

	if !validator.IsInSlice(string(r.Role), TrackedRoleValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_role",
			Message: "user_role must be one of: " + strings.Join(TrackedRoleValues, ", "),
		})
	}

	if r.BatteryLevel < 0 || r.BatteryLevel > 1 {
		errs = append(errs, validator.ValidationError{
			Field:   "battery_level",
			Message: "battery_level must be between 0 and 1",
		})
	}

	if r.Source != "" && r.Source != SourceScheduler && r.Source != SourceBackground {
		errs = append(errs, validator.ValidationError{
			Field:   "source",
			Message: "source must be one of: scheduler, background",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type SampleResponse struct {
	ID           string             `json:"id"`
	Latitude     float64            `json:"latitude"`
	Longitude    float64            `json:"longitude"`
	Accuracy     float64            `json:"accuracy"`
	Timestamp    string             `json:"timestamp"`
	UserEmail    string             `json:"user_email"`
	UserRole     string             `json:"user_role"`
	BatteryLevel float64            `json:"battery_level"`
	IsBackground bool               `json:"is_background"`
	Source       string             `json:"source"`
	WorkingHours workhours.Snapshot `json:"working_hours"`
}

func NewSampleResponse(s LocationSample) SampleResponse {
	return SampleResponse{
		ID:           s.ID,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		Accuracy:     s.Accuracy,
		Timestamp:    s.CapturedAt.UTC().Format(time.RFC3339),
		UserEmail:    s.Email,
		UserRole:     string(s.Role),
		BatteryLevel: s.BatteryLevel,
		IsBackground: s.Backgrounded,
		Source:       string(s.Source),
		WorkingHours: s.Window,
	}
}

type SampleFilter struct {
	Date  *string `json:"date,omitempty"` // YYYY-MM-DD
	Limit int     `json:"limit"`
}

func (f *SampleFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 50 // Default limit
	}
	if f.Limit > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 500",
		})
	}

	if f.Date != nil && *f.Date != "" {
		if _, valid := validator.IsValidDate(*f.Date); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// AGENT CONTROL DTOs
// ========================================

type LoginRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (r *LoginRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidEmail(strings.TrimSpace(r.Email)) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email must be a valid email",
		})
	}

	if validator.IsEmpty(r.Role) {
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "role is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type StopRequest struct {
	Reason string `json:"reason"`
}

// SessionStatus is the externally visible view of the tracking session.
type SessionStatus struct {
	State          string           `json:"state"`
	LastSampleAt   *string          `json:"last_sample_at,omitempty"`
	Email          string           `json:"email,omitempty"`
	Role           string           `json:"role,omitempty"`
	Permissions    *PermissionState `json:"permissions,omitempty"`
	QueuedSamples  int              `json:"queued_samples"`
	SamplesSent    int64            `json:"samples_sent"`
	SamplesQueued  int64            `json:"samples_queued"`
	SamplesDropped int64            `json:"samples_dropped"`
	TaskRestarts   int64            `json:"task_restarts"`
	StopReason     string           `json:"stop_reason,omitempty"`
}
