package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Gating errors
	case errors.Is(err, tracking.ErrOutsideWorkingHours):
		Conflict(w, "Outside working hours")
	case errors.Is(err, tracking.ErrPermissionDenied):
		Forbidden(w, "Location permission not granted")
	case errors.Is(err, tracking.ErrIdentityMissing):
		Unauthorized(w, "Operator is not logged in")
	case errors.Is(err, tracking.ErrIdentityExpired):
		Unauthorized(w, "Operator login expired")
	case errors.Is(err, tracking.ErrRoleNotTracked):
		Forbidden(w, "Role is not authorized for location tracking")
	case errors.Is(err, tracking.ErrStartSuperseded):
		Conflict(w, "Start superseded by a stop request")

	// Collector errors
	case errors.Is(err, tracking.ErrIdentityMismatch):
		Forbidden(w, "Sample identity does not match token")
	case errors.Is(err, tracking.ErrSampleNotFound):
		NotFound(w, "Location sample not found")
	case errors.Is(err, tracking.ErrSampleExists):
		Conflict(w, "Location sample already recorded")

	// Working hours errors
	case errors.Is(err, workhours.ErrScheduleMissing),
		errors.Is(err, workhours.ErrSettingsFetch):
		ServiceUnavailable(w, "Working hours settings unavailable")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
