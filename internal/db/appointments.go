package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/model"
)

const appointmentColumns = `id, staff_id, customer_id, service_id, date, start_minute,
	duration_minutes, status, created_at, updated_at`

// activeFilter matches statuses that block new bookings.
const activeFilter = `status IN ('Pending', 'InProgress')`

func (db *DB) scanAppointment(row rowScanner) (*model.Appointment, error) {
	var a model.Appointment
	var serviceID sql.NullString
	var date, status string
	if err := row.Scan(&a.ID, &a.StaffID, &a.CustomerID, &serviceID, &date, &a.Start,
		&a.Duration, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	day, err := db.parseDate(date)
	if err != nil {
		return nil, fmt.Errorf("appointment %s date: %w", a.ID, err)
	}
	a.Date = day
	a.ServiceID = serviceID.String
	a.Status = model.AppointmentStatus(status)
	return &a, nil
}

func (db *DB) queryAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := db.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ListActiveAppointments returns Pending and InProgress appointments of staffID on date.
func (db *DB) ListActiveAppointments(ctx context.Context, staffID string, date time.Time) ([]model.Appointment, error) {
	out, err := db.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE staff_id = ? AND date = ? AND `+activeFilter+`
		ORDER BY start_minute`,
		staffID, dateKey(date),
	)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

// ListActiveCustomerAppointments returns active appointments of customerID with staffID on date.
func (db *DB) ListActiveCustomerAppointments(ctx context.Context, customerID, staffID string, date time.Time) ([]model.Appointment, error) {
	out, err := db.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE customer_id = ? AND staff_id = ? AND date = ? AND `+activeFilter+`
		ORDER BY start_minute`,
		customerID, staffID, dateKey(date),
	)
	if err != nil {
		return nil, fmt.Errorf("list customer appointments: %w", err)
	}
	return out, nil
}

// GetAppointment returns an appointment by id.
func (db *DB) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, err := db.scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return a, nil
}

// overlapExists reports whether staffID has an active appointment on date that
// intersects [start, end), ignoring excludeID.
func overlapExists(ctx context.Context, tx *sql.Tx, staffID, date string, start, end int, excludeID string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE staff_id = ? AND date = ? AND `+activeFilter+`
		  AND id != ?
		  AND start_minute < ? AND start_minute + duration_minutes > ?`,
		staffID, date, excludeID, end, start,
	).Scan(&count)
	return count > 0, err
}

// InsertAppointment persists a, re-checking the staff member's calendar in the same
// transaction. It returns ErrSlotTaken when an active appointment already overlaps.
func (db *DB) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	return db.InsertAppointments(ctx, []*model.Appointment{a})
}

// InsertAppointments persists all of as in one transaction. Each appointment is
// checked against the calendar including the ones inserted before it, so either
// every appointment is stored or none is.
func (db *DB) InsertAppointments(ctx context.Context, as []*model.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, a := range as {
		if err := insertAppointmentTx(ctx, tx, a, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	for _, a := range as {
		a.CreatedAt, a.UpdatedAt = now, now
	}
	return nil
}

func insertAppointmentTx(ctx context.Context, tx *sql.Tx, a *model.Appointment, now time.Time) error {
	if a == nil {
		return fmt.Errorf("appointment is nil")
	}
	if a.Status == "" {
		a.Status = model.StatusPending
	}

	date := dateKey(a.Date)
	if a.Status.IsActive() {
		taken, err := overlapExists(ctx, tx, a.StaffID, date, a.Start, a.End(), a.ID)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if taken {
			return ErrSlotTaken
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO appointments (
			id, staff_id, customer_id, service_id, date, start_minute,
			duration_minutes, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.StaffID, a.CustomerID, a.ServiceID, date, a.Start,
		a.Duration, string(a.Status), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert appointment %s: %w", a.ID, err)
	}
	return nil
}

// UpdateAppointmentSlot moves an existing appointment to a new staff member, day or
// start, with the same overlap guard as InsertAppointment.
func (db *DB) UpdateAppointmentSlot(ctx context.Context, a *model.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	date := dateKey(a.Date)
	taken, err := overlapExists(ctx, tx, a.StaffID, date, a.Start, a.End(), a.ID)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE appointments
		SET staff_id = ?, date = ?, start_minute = ?, duration_minutes = ?, updated_at = ?
		WHERE id = ? AND `+activeFilter,
		a.StaffID, date, a.Start, a.Duration, now, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	a.UpdatedAt = now
	return nil
}

// UpdateAppointmentStatus sets the status of an appointment.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	res, err := db.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
