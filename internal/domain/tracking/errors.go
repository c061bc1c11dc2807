package tracking

import "errors"

var (
	// Gating errors
	ErrOutsideWorkingHours = errors.New("outside working hours")
	ErrPermissionDenied    = errors.New("location permission not granted")
	ErrIdentityMissing     = errors.New("no cached operator identity")
	ErrIdentityExpired     = errors.New("cached operator identity expired")
	ErrRoleNotTracked      = errors.New("role is not authorized for location tracking")
	ErrStartSuperseded     = errors.New("start superseded by a stop request")

	// Sampling errors
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrDuplicateSample     = errors.New("sample duplicates the previous reading")

	// Upload errors
	ErrUploadRejected = errors.New("collector rejected sample")
	ErrUploadFailed   = errors.New("sample upload failed, queued offline")
	ErrQueueEncode    = errors.New("failed to encode queued sample")

	// Collector errors
	ErrSampleNotFound   = errors.New("location sample not found")
	ErrSampleExists     = errors.New("location sample already recorded")
	ErrIdentityMismatch = errors.New("sample identity does not match token")
)
