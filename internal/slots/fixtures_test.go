package slots

import (
	"context"
	"errors"
	"time"

	"salonbook/internal/interval"
	"salonbook/internal/model"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory Store for tests.
type memStore struct {
	breaks map[string][]model.Break
	leave  map[string][]model.LeaveRecord
	appts  map[string][]model.Appointment

	breaksErr error
	leaveErr  error
	apptsErr  error
}

func newMemStore() *memStore {
	return &memStore{
		breaks: make(map[string][]model.Break),
		leave:  make(map[string][]model.LeaveRecord),
		appts:  make(map[string][]model.Appointment),
	}
}

func (m *memStore) ListBreaks(_ context.Context, staffID string, _ time.Weekday) ([]model.Break, error) {
	if m.breaksErr != nil {
		return nil, m.breaksErr
	}
	return m.breaks[staffID], nil
}

func (m *memStore) ListLeave(_ context.Context, staffID string, _ time.Time) ([]model.LeaveRecord, error) {
	if m.leaveErr != nil {
		return nil, m.leaveErr
	}
	return m.leave[staffID], nil
}

func (m *memStore) ListActiveAppointments(_ context.Context, staffID string, date time.Time) ([]model.Appointment, error) {
	if m.apptsErr != nil {
		return nil, m.apptsErr
	}
	var out []model.Appointment
	for _, a := range m.appts[staffID] {
		if model.SameDay(date, a.Date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) addBreak(staffID, start, end string, recurring bool, day time.Weekday) {
	m.breaks[staffID] = append(m.breaks[staffID], model.Break{
		StaffID:   staffID,
		Start:     interval.MustMinutes(start),
		End:       interval.MustMinutes(end),
		Weekday:   day,
		Recurring: recurring,
	})
}

func (m *memStore) addAppointment(staffID string, date time.Time, start string, duration int, status model.AppointmentStatus) {
	m.appts[staffID] = append(m.appts[staffID], model.Appointment{
		StaffID:  staffID,
		Date:     date,
		Start:    interval.MustMinutes(start),
		Duration: duration,
		Status:   status,
	})
}

// monday is a Monday well after fixedNow.
var (
	monday   = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	fixedNow = time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
)

func testOptions(now time.Time) Options {
	return Options{
		IntervalMinutes:  30,
		LookaheadMinutes: 30,
		Location:         time.UTC,
		Now:              func() time.Time { return now },
	}
}

func stylist(id, start, end string, services ...string) model.StaffMember {
	w, err := model.NewWindow(start, end)
	if err != nil {
		panic(err)
	}
	return model.StaffMember{
		ID:              id,
		Name:            id,
		Role:            model.DefaultSchedulableRole,
		Active:          true,
		Specializations: services,
		WorkingDays:     []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		Hours:           model.FlatHours(w),
	}
}

func slotAt(list []model.TimeSlot, hhmm string) (model.TimeSlot, bool) {
	for _, s := range list {
		if s.Time == hhmm {
			return s, true
		}
	}
	return model.TimeSlot{}, false
}

func slotTimes(slots []model.TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time)
	}
	return out
}
