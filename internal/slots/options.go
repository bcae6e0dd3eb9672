package slots

import (
	"context"
	"time"

	"salonbook/internal/interval"
	"salonbook/internal/model"
)

// ScheduleReader loads the per-day exclusions of one staff member.
type ScheduleReader interface {
	// ListBreaks returns breaks tied to day or recurring every day.
	ListBreaks(ctx context.Context, staffID string, day time.Weekday) ([]model.Break, error)
	// ListLeave returns leave records overlapping date.
	ListLeave(ctx context.Context, staffID string, date time.Time) ([]model.LeaveRecord, error)
}

// AppointmentReader loads commitments that block new bookings.
type AppointmentReader interface {
	// ListActiveAppointments returns Pending and InProgress appointments of staffID on date.
	ListActiveAppointments(ctx context.Context, staffID string, date time.Time) ([]model.Appointment, error)
}

// Store is everything slot generation reads.
type Store interface {
	ScheduleReader
	AppointmentReader
}

// Options configures slot generation.
type Options struct {
	IntervalMinutes  int
	BufferMinutes    int // added after the service for bounds and overlap checks
	LookaheadMinutes int // earliest bookable offset from now, today only
	Location         *time.Location
	Now              func() time.Time
	Role             string
}

// DefaultOptions returns 30 minute slots, no buffer and a 30 minute lookahead.
func DefaultOptions() Options {
	return Options{
		IntervalMinutes:  30,
		LookaheadMinutes: 30,
		Location:         time.Local,
		Now:              time.Now,
		Role:             model.DefaultSchedulableRole,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.IntervalMinutes <= 0 {
		o.IntervalMinutes = def.IntervalMinutes
	}
	if o.BufferMinutes < 0 {
		o.BufferMinutes = 0
	}
	if o.LookaheadMinutes < 0 {
		o.LookaheadMinutes = 0
	}
	if o.Location == nil {
		o.Location = def.Location
	}
	if o.Now == nil {
		o.Now = def.Now
	}
	if o.Role == "" {
		o.Role = def.Role
	}
	return o
}

// Day pins the calendar day of date into the configured location.
func (o Options) Day(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, o.Location)
}

// Today returns the current calendar day in the configured location.
func (o Options) Today() time.Time {
	return model.DateOnly(o.Now().In(o.Location))
}

// EmergencyBlocks reports whether staff's emergency flag removes them on date.
// The flag applies from today onwards and leaves past days untouched.
func (o Options) EmergencyBlocks(staff *model.StaffMember, date time.Time) bool {
	return staff.EmergencyUnavailable && !o.Day(date).Before(o.Today())
}

// earliestStart returns the first bookable minute on day, aligned to the grid
// that starts at origin. ok is false when day is not today.
func (o Options) earliestStart(day time.Time, origin int) (minute int, ok bool) {
	now := o.Now().In(o.Location)
	if !model.SameDay(day, now) {
		return 0, false
	}
	raw := now.Hour()*60 + now.Minute() + o.LookaheadMinutes
	if now.Second() > 0 || now.Nanosecond() > 0 {
		raw++
	}
	return interval.CeilToStep(raw, origin, o.IntervalMinutes), true
}
