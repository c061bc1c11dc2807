package workhours

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/validator"
)

// ========================================
// SETTINGS DOCUMENT
// ========================================

// SettingsDocument is the attendance-settings document as published by the
// settings collaborator.
type SettingsDocument struct {
	WorkingHours map[string]DayScheduleDocument `json:"workingHours"`
	Holidays     []HolidayDocument              `json:"holidays"`
}

type DayScheduleDocument struct {
	IsWorking         bool   `json:"isWorking"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	LateMarkingTime   string `json:"lateMarkingTime"`
	AutoAbsentTime    string `json:"autoAbsentTime"`
	RelaxationMinutes int    `json:"relaxationMinutes"`
}

type HolidayDocument struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Validate reports structural problems in the document. Working days need
// strict start/end clocks after normalization; optional clocks are checked
// only when present.
func (d *SettingsDocument) Validate() error {
	var errs validator.ValidationErrors

	if len(d.WorkingHours) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "workingHours",
			Message: "workingHours is required",
		})
	}

	for name, day := range d.WorkingHours {
		if _, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "workingHours." + name,
				Message: "unknown weekday",
			})
			continue
		}
		if !day.IsWorking {
			continue
		}
		for field, value := range map[string]string{"startTime": day.StartTime, "endTime": day.EndTime} {
			if !validator.IsValidClock(validator.NormalizeClock(value)) {
				errs = append(errs, validator.ValidationError{
					Field:   fmt.Sprintf("workingHours.%s.%s", name, field),
					Message: field + " must be in HH:MM format",
				})
			}
		}
		for field, value := range map[string]string{"lateMarkingTime": day.LateMarkingTime, "autoAbsentTime": day.AutoAbsentTime} {
			if value != "" && !validator.IsValidClock(validator.NormalizeClock(value)) {
				errs = append(errs, validator.ValidationError{
					Field:   fmt.Sprintf("workingHours.%s.%s", name, field),
					Message: field + " must be in HH:MM format",
				})
			}
		}
		if day.RelaxationMinutes < 0 {
			errs = append(errs, validator.ValidationError{
				Field:   fmt.Sprintf("workingHours.%s.relaxationMinutes", name),
				Message: "relaxationMinutes must not be negative",
			})
		}
	}

	for i, h := range d.Holidays {
		if _, ok := validator.IsValidDate(strings.TrimSpace(h.Date)); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   fmt.Sprintf("holidays[%d].date", i),
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToWindow converts the document into a Window, normalizing clock strings.
// It does not reject malformed clocks: those are carried through verbatim so
// the evaluator fails closed on them for the affected day only. Unknown
// weekday keys and unparseable holiday dates are skipped.
func (d *SettingsDocument) ToWindow(fetchedAt time.Time) *Window {
	w := &Window{
		Days:      make(map[time.Weekday]DaySchedule, len(d.WorkingHours)),
		Holidays:  make(map[string]Holiday, len(d.Holidays)),
		FetchedAt: fetchedAt,
	}

	for name, day := range d.WorkingHours {
		weekday, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		w.Days[weekday] = DaySchedule{
			IsWorkingDay:      day.IsWorking,
			StartTime:         validator.NormalizeClock(day.StartTime),
			EndTime:           validator.NormalizeClock(day.EndTime),
			LateMarkingTime:   validator.NormalizeClock(day.LateMarkingTime),
			AutoAbsentTime:    validator.NormalizeClock(day.AutoAbsentTime),
			RelaxationMinutes: day.RelaxationMinutes,
		}
	}

	for _, h := range d.Holidays {
		date, ok := validator.IsValidDate(strings.TrimSpace(h.Date))
		if !ok {
			continue
		}
		key := date.Format("2006-01-02")
		w.Holidays[key] = Holiday{Date: key, Description: h.Description}
	}

	return w
}
