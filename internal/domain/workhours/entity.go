package workhours

import "time"

// DaySchedule is one weekday of the institution's attendance settings.
// Clock fields hold normalized 24-hour "HH:MM" strings.
type DaySchedule struct {
	IsWorkingDay      bool
	StartTime         string
	EndTime           string
	LateMarkingTime   string
	AutoAbsentTime    string
	RelaxationMinutes int
}

// Overnight reports whether the window spans midnight (end before start).
func (d DaySchedule) Overnight() bool {
	return d.EndTime < d.StartTime
}

type Holiday struct {
	Date        string // YYYY-MM-DD
	Description string
}

// Window is the working-hours configuration in effect: one schedule per
// weekday plus the holiday calendar. A Window is treated as immutable once
// built; the settings cache replaces it wholesale on refresh.
type Window struct {
	Days      map[time.Weekday]DaySchedule
	Holidays  map[string]Holiday
	FetchedAt time.Time
}

// Day returns the schedule for the given weekday. Unconfigured days are
// non-working.
func (w *Window) Day(day time.Weekday) DaySchedule {
	if w == nil || w.Days == nil {
		return DaySchedule{}
	}
	return w.Days[day]
}

// Holiday returns the holiday entry covering t's calendar date, if any.
func (w *Window) Holiday(t time.Time) (Holiday, bool) {
	if w == nil || w.Holidays == nil {
		return Holiday{}, false
	}
	h, ok := w.Holidays[t.Format("2006-01-02")]
	return h, ok
}

// Snapshot is the slice of the window attached to a location sample so the
// collector knows which schedule was in force at capture time.
type Snapshot struct {
	Weekday           string `json:"weekday" cbor:"weekday"`
	IsWorkingDay      bool   `json:"is_working_day" cbor:"is_working_day"`
	StartTime         string `json:"start_time" cbor:"start_time"`
	EndTime           string `json:"end_time" cbor:"end_time"`
	LateMarkingTime   string `json:"late_marking_time,omitempty" cbor:"late_marking_time,omitempty"`
	AutoAbsentTime    string `json:"auto_absent_time,omitempty" cbor:"auto_absent_time,omitempty"`
	RelaxationMinutes int    `json:"relaxation_minutes" cbor:"relaxation_minutes"`
}

// SnapshotAt captures the schedule for t's weekday.
func (w *Window) SnapshotAt(t time.Time) Snapshot {
	d := w.Day(t.Weekday())
	return Snapshot{
		Weekday:           t.Weekday().String(),
		IsWorkingDay:      d.IsWorkingDay,
		StartTime:         d.StartTime,
		EndTime:           d.EndTime,
		LateMarkingTime:   d.LateMarkingTime,
		AutoAbsentTime:    d.AutoAbsentTime,
		RelaxationMinutes: d.RelaxationMinutes,
	}
}
