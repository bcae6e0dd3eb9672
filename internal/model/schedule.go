package model

import (
	"time"

	"salonbook/internal/interval"
)

// Break is a daily blocked interval such as lunch.
type Break struct {
	ID        string       `json:"id"`
	StaffID   string       `json:"staff_id"`
	Start     int          `json:"-"`
	End       int          `json:"-"`
	Weekday   time.Weekday `json:"weekday"`
	Recurring bool         `json:"recurring"` // applies every day, Weekday ignored
}

// AppliesOn reports whether the break is in force on day.
func (b *Break) AppliesOn(day time.Weekday) bool {
	return b.Recurring || b.Weekday == day
}

// LeaveType tags a leave record for display purposes only.
type LeaveType string

const (
	LeaveHoliday   LeaveType = "holiday"
	LeaveHalfDay   LeaveType = "half_day"
	LeaveEmergency LeaveType = "emergency"
)

// LeaveRecord is a possibly multi-day unavailability of one staff member.
type LeaveRecord struct {
	ID      string    `json:"id"`
	StaffID string    `json:"staff_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Type    LeaveType `json:"type"`
	Note    string    `json:"note,omitempty"`
}

// BlockedRange returns the minutes of date covered by the leave. Only the
// time-of-day component of Start/End constrains boundary days; interior days
// are blocked entirely.
func (l *LeaveRecord) BlockedRange(date time.Time) (from, to int, ok bool) {
	loc := date.Location()
	day := DateOnly(date)
	start := l.Start.In(loc)
	end := l.End.In(loc)

	startDay := DateOnly(start)
	endDay := DateOnly(end)
	if day.Before(startDay) || day.After(endDay) {
		return 0, 0, false
	}

	from, to = 0, interval.MinutesPerDay
	if day.Equal(startDay) {
		from = start.Hour()*60 + start.Minute()
	}
	if day.Equal(endDay) {
		to = end.Hour()*60 + end.Minute()
	}
	if to <= from {
		return 0, 0, false
	}
	return from, to, true
}

// Reason is the human-readable explanation for a slot blocked by this leave.
func (l *LeaveRecord) Reason() string {
	switch l.Type {
	case LeaveHalfDay:
		return "On half-day leave"
	case LeaveEmergency:
		return "Emergency leave"
	default:
		return "On holiday"
	}
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
