package workhours

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/validator"
)

const minutesPerDay = 24 * 60

// Verdict reasons.
const (
	ReasonWithinWindow  = "within working hours"
	ReasonNoSchedule    = "no working hours schedule"
	ReasonNotWorkingDay = "not a working day"
	ReasonHoliday       = "holiday"
	ReasonInvalidConfig = "invalid working hours configuration"
	ReasonBeforeStart   = "before working hours"
	ReasonAfterEnd      = "after working hours"
)

type Verdict struct {
	WithinWindow bool
	Reason       string
}

// Evaluate decides whether tracking must be active at now. It has no side
// effects: identical inputs always produce the same verdict. Any doubt about
// the configuration resolves to "not within window".
func Evaluate(now time.Time, window *workhours.Window) Verdict {
	if window == nil || len(window.Days) == 0 {
		return Verdict{Reason: ReasonNoSchedule}
	}

	day := window.Day(now.Weekday())
	if !day.IsWorkingDay {
		return Verdict{Reason: ReasonNotWorkingDay}
	}

	if h, ok := window.Holiday(now); ok {
		reason := ReasonHoliday
		if h.Description != "" {
			reason = fmt.Sprintf("%s: %s", ReasonHoliday, h.Description)
		}
		return Verdict{Reason: reason}
	}

	start, okStart := validator.ClockMinutes(day.StartTime)
	end, okEnd := validator.ClockMinutes(day.EndTime)
	if !okStart || !okEnd {
		return Verdict{Reason: ReasonInvalidConfig}
	}

	current := now.Hour()*60 + now.Minute()

	if end < start {
		end += minutesPerDay
		if current < start {
			current += minutesPerDay
		}
	}

	switch {
	case current < start:
		return Verdict{Reason: ReasonBeforeStart}
	case current > end:
		return Verdict{Reason: ReasonAfterEnd}
	}
	return Verdict{WithinWindow: true, Reason: ReasonWithinWindow}
}
