package slots

import (
	"context"
	"testing"
	"time"

	"salonbook/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FullDayNoExclusions(t *testing.T) {
	store := newMemStore()
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(store, testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 60)

	require.Equal(t, OutcomeSlots, res.Outcome)
	require.Len(t, res.Slots, 17)
	assert.Equal(t, "09:00", res.Slots[0].Time)
	assert.Equal(t, "17:00", res.Slots[len(res.Slots)-1].Time)
	assert.Equal(t, 17, res.AvailableCount())

	_, ok := slotAt(res.Slots, "17:30")
	assert.False(t, ok, "17:30 + 60 runs past closing")

	for i := 1; i < len(res.Slots); i++ {
		assert.Equal(t, res.Slots[i-1].Start+30, res.Slots[i].Start)
	}
}

func TestResolve_BreakBlocksOverlappingSlot(t *testing.T) {
	store := newMemStore()
	store.addBreak("s1", "12:00", "13:00", true, 0)
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(store, testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 60)
	require.Equal(t, OutcomeSlots, res.Outcome)

	s, ok := slotAt(res.Slots, "11:30")
	require.True(t, ok)
	assert.False(t, s.Available)
	assert.Equal(t, ReasonBreak, s.Reason)

	s, _ = slotAt(res.Slots, "11:00")
	assert.True(t, s.Available, "11:00-12:00 touches the break without overlapping")

	s, _ = slotAt(res.Slots, "13:00")
	assert.True(t, s.Available)
}

func TestResolve_WeekdayBreakOnlyOnItsDay(t *testing.T) {
	store := newMemStore()
	store.addBreak("s1", "12:00", "13:00", false, time.Tuesday)
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(store, testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 30)
	s, _ := slotAt(res.Slots, "12:00")
	assert.True(t, s.Available)

	res = r.Resolve(context.Background(), &staff, monday.AddDate(0, 0, 1), 30)
	s, _ = slotAt(res.Slots, "12:00")
	assert.False(t, s.Available)
	assert.Equal(t, ReasonBreak, s.Reason)
}

func TestResolve_LeaveReasons(t *testing.T) {
	store := newMemStore()
	store.leave["s1"] = []model.LeaveRecord{{
		StaffID: "s1",
		Start:   monday.Add(14 * time.Hour),
		End:     monday.Add(18 * time.Hour),
		Type:    model.LeaveHalfDay,
	}}
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(store, testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 30)

	s, _ := slotAt(res.Slots, "13:30")
	assert.True(t, s.Available)
	s, _ = slotAt(res.Slots, "14:00")
	assert.False(t, s.Available)
	assert.Equal(t, "On half-day leave", s.Reason)
}

func TestResolve_MultiDayLeaveBlocksInteriorDay(t *testing.T) {
	store := newMemStore()
	store.leave["s1"] = []model.LeaveRecord{{
		StaffID: "s1",
		Start:   monday.AddDate(0, 0, -1).Add(15 * time.Hour),
		End:     monday.AddDate(0, 0, 1).Add(11 * time.Hour),
		Type:    model.LeaveHoliday,
	}}
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(store, testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 30)
	require.Equal(t, OutcomeSlots, res.Outcome)
	assert.Equal(t, 0, res.AvailableCount())
	for _, s := range res.Slots {
		assert.Equal(t, "On holiday", s.Reason)
	}

	// Last day only blocks until 11:00.
	res = r.Resolve(context.Background(), &staff, monday.AddDate(0, 0, 1), 30)
	s, _ := slotAt(res.Slots, "10:30")
	assert.False(t, s.Available)
	s, _ = slotAt(res.Slots, "11:00")
	assert.True(t, s.Available)
}

func TestResolve_ReasonPriority(t *testing.T) {
	store := newMemStore()
	store.addBreak("s1", "12:00", "13:00", true, 0)
	store.leave["s1"] = []model.LeaveRecord{{
		StaffID: "s1",
		Start:   monday.Add(9 * time.Hour),
		End:     monday.Add(18 * time.Hour),
		Type:    model.LeaveEmergency,
	}}
	store.addAppointment("s1", monday, "12:00", 60, model.StatusPending)
	store.addAppointment("s1", monday, "15:00", 60, model.StatusPending)
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(store, testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 30)

	s, _ := slotAt(res.Slots, "12:00")
	assert.Equal(t, ReasonBreak, s.Reason)
	s, _ = slotAt(res.Slots, "15:00")
	assert.Equal(t, "Emergency leave", s.Reason)
}

func TestResolve_ActiveAppointmentsOnly(t *testing.T) {
	store := newMemStore()
	store.addAppointment("s1", monday, "10:00", 30, model.StatusPending)
	store.addAppointment("s1", monday, "14:00", 60, model.StatusCancelled)
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(store, testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 60)

	s, _ := slotAt(res.Slots, "09:00")
	assert.True(t, s.Available, "09:00-10:00 ends as the booking starts")
	s, _ = slotAt(res.Slots, "09:30")
	assert.False(t, s.Available)
	assert.Equal(t, ReasonBooked, s.Reason)
	s, _ = slotAt(res.Slots, "10:00")
	assert.False(t, s.Available)
	s, _ = slotAt(res.Slots, "10:30")
	assert.True(t, s.Available)
	s, _ = slotAt(res.Slots, "14:00")
	assert.True(t, s.Available, "cancelled appointments never block")
}

func TestResolve_BufferExtendsBoundsAndOverlap(t *testing.T) {
	store := newMemStore()
	store.addAppointment("s1", monday, "11:00", 30, model.StatusInProgress)
	staff := stylist("s1", "09:00", "12:00", "cut")
	opts := testOptions(fixedNow)
	opts.BufferMinutes = 15
	r := NewResolver(store, opts, nil)

	res := r.Resolve(context.Background(), &staff, monday, 30)

	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00"}, slotTimes(res.Slots))
	s, _ := slotAt(res.Slots, "10:30")
	assert.False(t, s.Available, "10:30-11:15 runs into the 11:00 booking")
}

func TestResolve_NotWorkingDay(t *testing.T) {
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(newMemStore(), testOptions(fixedNow), nil)

	sunday := monday.AddDate(0, 0, 6)
	res := r.Resolve(context.Background(), &staff, sunday, 30)

	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Empty(t, res.Slots)
	assert.Equal(t, MsgNotWorkingDay, res.Message)
	assert.False(t, res.Failed())
}

func TestResolve_WeeklyHoursWithoutEntry(t *testing.T) {
	staff := stylist("s1", "09:00", "18:00", "cut")
	w, err := model.NewWindow("10:00", "14:00")
	require.NoError(t, err)
	staff.Hours = model.WeeklyHours(map[time.Weekday]model.Window{time.Tuesday: w})
	r := NewResolver(newMemStore(), testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 30)
	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Equal(t, MsgNoWorkingHours, res.Message)

	res = r.Resolve(context.Background(), &staff, monday.AddDate(0, 0, 1), 30)
	require.Equal(t, OutcomeSlots, res.Outcome)
	assert.Equal(t, "10:00", res.Slots[0].Time)
	assert.Equal(t, "13:30", res.Slots[len(res.Slots)-1].Time)
}

func TestResolve_EmergencyUnavailable(t *testing.T) {
	staff := stylist("s1", "09:00", "18:00", "cut")
	staff.EmergencyUnavailable = true
	r := NewResolver(newMemStore(), testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 30)
	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Equal(t, MsgStaffUnavailable, res.Message)

	lastMonday := monday.AddDate(0, 0, -7)
	res = r.Resolve(context.Background(), &staff, lastMonday, 30)
	assert.Equal(t, OutcomeSlots, res.Outcome, "the flag does not rewrite past days")
}

func TestResolve_TodayCutoff(t *testing.T) {
	now := monday.Add(10*time.Hour + 10*time.Minute + 30*time.Second)
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(newMemStore(), testOptions(now), nil)

	res := r.Resolve(context.Background(), &staff, monday, 30)

	require.NotEmpty(t, res.Slots)
	// 10:10:30 + 30 minutes lookahead rounds up to 11:00 on the 30 minute grid.
	assert.Equal(t, "11:00", res.Slots[0].Time)
	cutoff := now.Add(30 * time.Minute)
	for _, s := range res.Slots {
		assert.False(t, s.StartOn(monday).Before(cutoff), s.Time)
	}
}

func TestResolve_TodayCutoffOnGridBoundary(t *testing.T) {
	now := monday.Add(10 * time.Hour)
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(newMemStore(), testOptions(now), nil)

	res := r.Resolve(context.Background(), &staff, monday, 30)
	require.NotEmpty(t, res.Slots)
	assert.Equal(t, "10:30", res.Slots[0].Time)
}

func TestResolve_FailsClosedOnReadError(t *testing.T) {
	staff := stylist("s1", "09:00", "18:00", "cut")

	for name, set := range map[string]func(*memStore){
		"breaks":       func(m *memStore) { m.breaksErr = errStoreDown },
		"leave":        func(m *memStore) { m.leaveErr = errStoreDown },
		"appointments": func(m *memStore) { m.apptsErr = errStoreDown },
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			set(store)
			r := NewResolver(store, testOptions(fixedNow), nil)

			res := r.Resolve(context.Background(), &staff, monday, 30)

			assert.True(t, res.Failed())
			assert.Empty(t, res.Slots)
			assert.ErrorIs(t, res.Err, errStoreDown)
		})
	}
}

func TestResolve_InvalidDuration(t *testing.T) {
	staff := stylist("s1", "09:00", "18:00", "cut")
	r := NewResolver(newMemStore(), testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 0)
	assert.True(t, res.Failed())
	assert.Error(t, res.Err)
}

func TestResolve_ServiceLongerThanDay(t *testing.T) {
	staff := stylist("s1", "09:00", "10:00", "cut")
	r := NewResolver(newMemStore(), testOptions(fixedNow), nil)

	res := r.Resolve(context.Background(), &staff, monday, 90)
	assert.Equal(t, OutcomeSlots, res.Outcome)
	assert.Empty(t, res.Slots)
}
