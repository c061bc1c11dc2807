package workhours

import "errors"

var (
	ErrScheduleMissing    = errors.New("working hours schedule not available")
	ErrInvalidTimeFormat  = errors.New("invalid time format, use HH:MM")
	ErrInvalidWeekday     = errors.New("invalid weekday in working hours")
	ErrInvalidHolidayDate = errors.New("invalid holiday date, use YYYY-MM-DD")
	ErrSettingsFetch      = errors.New("failed to fetch settings document")
)
