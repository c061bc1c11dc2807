package workhours

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDocument_ToWindow_NormalizesClocks(t *testing.T) {
	doc := SettingsDocument{
		WorkingHours: map[string]DayScheduleDocument{
			"Monday":   {IsWorking: true, StartTime: "9:00", EndTime: "17:00", LateMarkingTime: "9:15", RelaxationMinutes: 10},
			"saturday": {IsWorking: true, StartTime: "22:00", EndTime: "24:00"},
			"funday":   {IsWorking: true, StartTime: "09:00", EndTime: "10:00"},
		},
		Holidays: []HolidayDocument{
			{Date: "2026-08-17", Description: "Independence Day"},
			{Date: "17/08/2026", Description: "bad"},
		},
	}

	fetched := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	w := doc.ToWindow(fetched)

	monday := w.Day(time.Monday)
	assert.True(t, monday.IsWorkingDay)
	assert.Equal(t, "09:00", monday.StartTime)
	assert.Equal(t, "09:15", monday.LateMarkingTime)
	assert.Equal(t, 10, monday.RelaxationMinutes)

	saturday := w.Day(time.Saturday)
	assert.Equal(t, "00:00", saturday.EndTime)
	assert.True(t, saturday.Overnight())

	assert.False(t, w.Day(time.Sunday).IsWorkingDay)
	assert.Len(t, w.Days, 2)
	assert.Len(t, w.Holidays, 1)

	h, ok := w.Holiday(time.Date(2026, 8, 17, 13, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "Independence Day", h.Description)
	assert.Equal(t, fetched, w.FetchedAt)
}

func TestSettingsDocument_Validate(t *testing.T) {
	doc := SettingsDocument{
		WorkingHours: map[string]DayScheduleDocument{
			"monday":  {IsWorking: true, StartTime: "25:00", EndTime: "17:00"},
			"tuesday": {IsWorking: false, StartTime: "nope"},
			"someday": {IsWorking: true},
		},
		Holidays: []HolidayDocument{{Date: "2026-02-30"}},
	}

	err := doc.Validate()
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	details := verrs.ToMap()
	assert.Contains(t, details, "workingHours.monday.startTime")
	assert.NotContains(t, details, "workingHours.monday.endTime")
	assert.NotContains(t, details, "workingHours.tuesday.startTime")
	assert.Contains(t, details, "workingHours.someday")
	assert.Contains(t, details, "holidays[0].date")
}

func TestSettingsDocument_Validate_Empty(t *testing.T) {
	doc := SettingsDocument{}
	assert.Error(t, doc.Validate())
}

func TestWindow_SnapshotAt(t *testing.T) {
	w := &Window{Days: map[time.Weekday]DaySchedule{
		time.Wednesday: {IsWorkingDay: true, StartTime: "08:00", EndTime: "16:00", RelaxationMinutes: 5},
	}}
	snap := w.SnapshotAt(time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, "Wednesday", snap.Weekday)
	assert.True(t, snap.IsWorkingDay)
	assert.Equal(t, "08:00", snap.StartTime)
	assert.Equal(t, 5, snap.RelaxationMinutes)

	var nilWindow *Window
	assert.False(t, nilWindow.SnapshotAt(time.Now()).IsWorkingDay)
}
