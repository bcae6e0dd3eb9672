package db

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "salon.db"), time.UTC, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedStaff(t *testing.T, db *DB, id string) *model.StaffMember {
	t.Helper()
	w, err := model.NewWindow("09:00", "18:00")
	require.NoError(t, err)
	s := &model.StaffMember{
		ID:              id,
		Name:            "Staff " + id,
		BranchID:        "central",
		Role:            model.DefaultSchedulableRole,
		Active:          true,
		Specializations: []string{"cut"},
		WorkingDays:     []time.Weekday{time.Monday, time.Friday},
		Hours:           model.FlatHours(w),
	}
	require.NoError(t, db.UpsertStaff(context.Background(), s))
	return s
}

func newAppointment(id, staffID, customerID string, start, duration int) *model.Appointment {
	return &model.Appointment{
		ID:         id,
		StaffID:    staffID,
		CustomerID: customerID,
		ServiceID:  "cut",
		Date:       monday,
		Start:      start,
		Duration:   duration,
	}
}

func TestServices(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetService(ctx, "cut")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.UpsertService(ctx, &model.Service{ID: "cut", Name: "Haircut", Duration: 60, Price: 40, Active: true}))
	require.NoError(t, db.UpsertService(ctx, &model.Service{ID: "cut", Name: "Haircut", Duration: 45, Price: 40, Active: true}))

	s, err := db.GetService(ctx, "cut")
	require.NoError(t, err)
	assert.Equal(t, 45, s.Duration)
	assert.True(t, s.Active)

	all, err := db.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStaffRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedStaff(t, db, "a")

	weekly := model.WeeklyHours(map[time.Weekday]model.Window{
		time.Saturday: {Start: 600, End: 900},
	})
	require.NoError(t, db.UpsertStaff(ctx, &model.StaffMember{
		ID: "b", Name: "B", BranchID: "north", Role: "Stylist", Active: true,
		WorkingDays: []time.Weekday{time.Saturday}, Hours: weekly,
	}))

	a, err := db.GetStaff(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"cut"}, a.Specializations)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, a.WorkingDays)
	assert.Equal(t, model.HoursFlat, a.Hours.Kind)

	b, err := db.GetStaff(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, model.HoursWeekly, b.Hours.Kind)
	w, ok := b.Hours.For(time.Saturday)
	require.True(t, ok)
	assert.Equal(t, 900, w.End)
	assert.Empty(t, b.Specializations)

	all, err := db.ListStaff(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	central, err := db.ListStaff(ctx, "central")
	require.NoError(t, err)
	require.Len(t, central, 1)
	assert.Equal(t, "a", central[0].ID)

	require.NoError(t, db.SetEmergencyUnavailable(ctx, "a", true))
	a, err = db.GetStaff(ctx, "a")
	require.NoError(t, err)
	assert.True(t, a.EmergencyUnavailable)

	assert.ErrorIs(t, db.SetEmergencyUnavailable(ctx, "zz", true), ErrNotFound)
	_, err = db.GetStaff(ctx, "zz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBreaksAndLeave(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedStaff(t, db, "a")

	require.NoError(t, db.UpsertBreak(ctx, &model.Break{ID: "lunch", StaffID: "a", Start: 780, End: 840, Recurring: true}))
	require.NoError(t, db.UpsertBreak(ctx, &model.Break{ID: "fri", StaffID: "a", Start: 960, End: 990, Weekday: time.Friday}))

	breaks, err := db.ListBreaks(ctx, "a", time.Monday)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Equal(t, "lunch", breaks[0].ID)

	breaks, err = db.ListBreaks(ctx, "a", time.Friday)
	require.NoError(t, err)
	require.Len(t, breaks, 2)
	assert.Equal(t, time.Friday, breaks[1].Weekday)
	assert.False(t, breaks[1].Recurring)

	require.NoError(t, db.UpsertLeave(ctx, &model.LeaveRecord{
		ID: "trip", StaffID: "a",
		Start: monday.AddDate(0, 0, -1).Add(15 * time.Hour),
		End:   monday.AddDate(0, 0, 1).Add(11 * time.Hour),
		Type:  model.LeaveHoliday,
	}))

	for _, d := range []time.Time{monday.AddDate(0, 0, -1), monday, monday.AddDate(0, 0, 1)} {
		leave, err := db.ListLeave(ctx, "a", d)
		require.NoError(t, err)
		assert.Len(t, leave, 1, d.Format(dateLayout))
	}

	leave, err := db.ListLeave(ctx, "a", monday.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Empty(t, leave)

	leave, err = db.ListLeave(ctx, "a", monday)
	require.NoError(t, err)
	from, to, ok := leave[0].BlockedRange(monday)
	require.True(t, ok)
	assert.Equal(t, 0, from)
	assert.Equal(t, 24*60, to)
}

func TestAppointments_ActiveFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedStaff(t, db, "a")

	require.NoError(t, db.InsertAppointment(ctx, newAppointment("1", "a", "c1", 600, 30)))
	require.NoError(t, db.InsertAppointment(ctx, newAppointment("2", "a", "c2", 660, 60)))
	require.NoError(t, db.UpdateAppointmentStatus(ctx, "2", model.StatusCancelled))

	active, err := db.ListActiveAppointments(ctx, "a", monday)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "1", active[0].ID)
	assert.Equal(t, model.StatusPending, active[0].Status)
	assert.True(t, model.SameDay(monday, active[0].Date))

	mine, err := db.ListActiveCustomerAppointments(ctx, "c1", "a", monday)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := db.ListActiveCustomerAppointments(ctx, "c2", "a", monday)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	other, err := db.ListActiveAppointments(ctx, "a", monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, other)

	got, err := db.GetAppointment(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	assert.Error(t, db.UpdateAppointmentStatus(ctx, "1", "Lost"))
	assert.ErrorIs(t, db.UpdateAppointmentStatus(ctx, "nope", model.StatusCompleted), ErrNotFound)
}

func TestInsertAppointment_RejectsOverlap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedStaff(t, db, "a")
	seedStaff(t, db, "b")

	require.NoError(t, db.InsertAppointment(ctx, newAppointment("1", "a", "c1", 600, 60)))

	err := db.InsertAppointment(ctx, newAppointment("2", "a", "c2", 630, 30))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Back to back and other staff are fine.
	require.NoError(t, db.InsertAppointment(ctx, newAppointment("3", "a", "c2", 660, 30)))
	require.NoError(t, db.InsertAppointment(ctx, newAppointment("4", "b", "c2", 630, 30)))

	// A cancelled booking frees the slot.
	require.NoError(t, db.UpdateAppointmentStatus(ctx, "1", model.StatusCancelled))
	require.NoError(t, db.InsertAppointment(ctx, newAppointment("5", "a", "c3", 600, 60)))
}

func TestInsertAppointment_ConcurrentWritersOneWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedStaff(t, db, "a")

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := newAppointment(string(rune('a'+i)), "a", "c", 600, 30)
			errs[i] = db.InsertAppointment(ctx, a)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrSlotTaken)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestInsertAppointments_AllOrNothing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedStaff(t, db, "a")

	require.NoError(t, db.InsertAppointment(ctx, newAppointment("1", "a", "c1", 720, 60)))

	batch := []*model.Appointment{
		newAppointment("2", "a", "c2", 600, 30),
		newAppointment("3", "a", "c2", 750, 30),
	}
	assert.ErrorIs(t, db.InsertAppointments(ctx, batch), ErrSlotTaken)

	_, err := db.GetAppointment(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound, "first appointment of a failed batch is rolled back")

	// Members of one batch see each other.
	selfClash := []*model.Appointment{
		newAppointment("4", "a", "c3", 540, 60),
		newAppointment("5", "a", "c3", 570, 30),
	}
	assert.ErrorIs(t, db.InsertAppointments(ctx, selfClash), ErrSlotTaken)

	ok := []*model.Appointment{
		newAppointment("6", "a", "c3", 540, 60),
		newAppointment("7", "a", "c3", 600, 30),
	}
	require.NoError(t, db.InsertAppointments(ctx, ok))
	assert.False(t, ok[1].CreatedAt.IsZero())
}

func TestUpdateAppointmentSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedStaff(t, db, "a")

	require.NoError(t, db.InsertAppointment(ctx, newAppointment("1", "a", "c1", 600, 60)))
	require.NoError(t, db.InsertAppointment(ctx, newAppointment("2", "a", "c2", 720, 60)))

	moved := newAppointment("1", "a", "c1", 630, 60)
	require.NoError(t, db.UpdateAppointmentSlot(ctx, moved), "overlapping its own old slot is allowed")

	clash := newAppointment("1", "a", "c1", 690, 60)
	assert.ErrorIs(t, db.UpdateAppointmentSlot(ctx, clash), ErrSlotTaken)

	missing := newAppointment("9", "a", "c1", 900, 30)
	assert.ErrorIs(t, db.UpdateAppointmentSlot(ctx, missing), ErrNotFound)

	got, err := db.GetAppointment(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 630, got.Start)
}

func TestSyncRoster(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedStaff(t, db, "retired")

	roster := &config.RosterConfig{
		Services: []config.ServiceConfig{{ID: "cut", Name: "Cut", DurationMinutes: 30, IsActive: true}},
		Staff: []config.StaffConfig{{
			ID:              "anna",
			Name:            "Anna",
			IsActive:        true,
			Specializations: []string{"cut"},
			WorkingDays:     []string{"mon"},
			WorkingHours:    &config.HoursConfig{Start: "09:00", End: "17:00"},
			Breaks:          []config.BreakConfig{{Start: "12:00", End: "12:30"}},
		}},
		Leave: []config.LeaveConfig{{ID: "l1", StaffID: "anna", Start: "2026-03-02 15:00", End: "2026-03-02 17:00", Type: "half_day"}},
	}
	require.NoError(t, roster.Validate())
	require.NoError(t, db.SyncRoster(ctx, roster))
	// Second sync must not duplicate breaks.
	require.NoError(t, db.SyncRoster(ctx, roster))

	staff, err := db.ListStaff(ctx, "")
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "anna", staff[0].ID)

	retired, err := db.GetStaff(ctx, "retired")
	require.NoError(t, err)
	assert.False(t, retired.Active)

	breaks, err := db.ListBreaks(ctx, "anna", time.Monday)
	require.NoError(t, err)
	assert.Len(t, breaks, 1)

	leave, err := db.ListLeave(ctx, "anna", monday)
	require.NoError(t, err)
	require.Len(t, leave, 1)
	assert.Equal(t, model.LeaveHalfDay, leave[0].Type)

	assert.Error(t, db.SyncRoster(ctx, nil))
}

func annaRoster() *config.RosterConfig {
	return &config.RosterConfig{
		Services: []config.ServiceConfig{{ID: "cut", Name: "Cut", DurationMinutes: 30, IsActive: true}},
		Staff: []config.StaffConfig{{
			ID:              "anna",
			Name:            "Anna",
			IsActive:        true,
			Specializations: []string{"cut"},
			WorkingDays:     []string{"mon"},
			WorkingHours:    &config.HoursConfig{Start: "09:00", End: "17:00"},
			Breaks:          []config.BreakConfig{{Start: "12:00", End: "12:30"}},
		}},
		Leave: []config.LeaveConfig{{ID: "l1", StaffID: "anna", Start: "2026-03-02 15:00", End: "2026-03-02 17:00", Type: "half_day"}},
	}
}

func TestSyncRoster_RemovedLeaveIsDeleted(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	roster := annaRoster()
	require.NoError(t, db.SyncRoster(ctx, roster))

	leave, err := db.ListLeave(ctx, "anna", monday)
	require.NoError(t, err)
	require.Len(t, leave, 1)

	roster.Leave = nil
	require.NoError(t, db.SyncRoster(ctx, roster))

	leave, err = db.ListLeave(ctx, "anna", monday)
	require.NoError(t, err)
	assert.Empty(t, leave)
}

func TestSyncRoster_FailureLeavesPreviousRoster(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SyncRoster(ctx, annaRoster()))

	broken := annaRoster()
	broken.Staff[0].Breaks = []config.BreakConfig{{Start: "13:00", End: "14:00"}}
	broken.Leave = append(broken.Leave, config.LeaveConfig{
		ID: "l2", StaffID: "ghost", Start: "2026-03-03", End: "2026-03-04", Type: "holiday",
	})
	assert.Error(t, db.SyncRoster(ctx, broken), "leave for an unknown staff member violates the foreign key")

	breaks, err := db.ListBreaks(ctx, "anna", time.Monday)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Equal(t, 12*60, breaks[0].Start, "break replacement was rolled back")

	leave, err := db.ListLeave(ctx, "anna", monday)
	require.NoError(t, err)
	require.Len(t, leave, 1)
	assert.Equal(t, "l1", leave[0].ID)
}

func TestBackup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedStaff(t, db, "a")

	dir := filepath.Join(t.TempDir(), "backups")
	logger := zerolog.New(io.Discard)
	svc := NewBackupService(db, BackupConfig{Enabled: true, StoragePath: dir, RetentionDays: 1}, &logger)

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	stale := filepath.Join(dir, "backup_old.db")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := time.Now().AddDate(0, 0, -3)
	require.NoError(t, os.Chtimes(stale, old, old))

	svc.CleanupOldBackups()
	assert.NoFileExists(t, stale)
	assert.FileExists(t, path)
}
