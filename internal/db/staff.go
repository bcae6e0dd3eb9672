package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/model"
)

// GetService returns a service by id.
func (db *DB) GetService(ctx context.Context, id string) (*model.Service, error) {
	var s model.Service
	var category sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, name, category, duration_minutes, price, is_active
		FROM services WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &category, &s.Duration, &s.Price, &s.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", id, err)
	}
	s.Category = category.String
	return &s, nil
}

// ListServices returns all services ordered by name.
func (db *DB) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, category, duration_minutes, price, is_active
		FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		var category sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &category, &s.Duration, &s.Price, &s.Active); err != nil {
			return nil, err
		}
		s.Category = category.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertService creates or updates a service, preserving created_at.
func (db *DB) UpsertService(ctx context.Context, s *model.Service) error {
	return upsertService(ctx, db.DB, s)
}

func upsertService(ctx context.Context, ex execer, s *model.Service) error {
	if s == nil {
		return fmt.Errorf("service is nil")
	}
	now := time.Now()
	_, err := ex.ExecContext(ctx, `
		INSERT INTO services (id, name, category, duration_minutes, price, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			duration_minutes = excluded.duration_minutes,
			price = excluded.price,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		s.ID, s.Name, s.Category, s.Duration, s.Price, s.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert service %s: %w", s.ID, err)
	}
	return nil
}

const staffColumns = `id, name, branch_id, role, is_active, emergency_unavailable,
	specializations, working_days, working_hours`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStaff(row rowScanner) (*model.StaffMember, error) {
	var s model.StaffMember
	var branch sql.NullString
	var specs, days, hours string

	if err := row.Scan(&s.ID, &s.Name, &branch, &s.Role, &s.Active, &s.EmergencyUnavailable,
		&specs, &days, &hours); err != nil {
		return nil, err
	}
	s.BranchID = branch.String

	if err := json.Unmarshal([]byte(specs), &s.Specializations); err != nil {
		return nil, fmt.Errorf("staff %s specializations: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(days), &s.WorkingDays); err != nil {
		return nil, fmt.Errorf("staff %s working days: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(hours), &s.Hours); err != nil {
		return nil, fmt.Errorf("staff %s working hours: %w", s.ID, err)
	}
	return &s, nil
}

// GetStaff returns a staff member by id.
func (db *DB) GetStaff(ctx context.Context, id string) (*model.StaffMember, error) {
	row := db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = ?`, id)
	s, err := scanStaff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get staff %s: %w", id, err)
	}
	return s, nil
}

// ListStaff returns active staff, restricted to branchID when it is not empty.
func (db *DB) ListStaff(ctx context.Context, branchID string) ([]model.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE is_active = 1`
	args := []any{}
	if branchID != "" {
		query += ` AND branch_id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []model.StaffMember
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpsertStaff creates or updates a staff member, preserving created_at.
func (db *DB) UpsertStaff(ctx context.Context, s *model.StaffMember) error {
	return upsertStaff(ctx, db.DB, s)
}

func upsertStaff(ctx context.Context, ex execer, s *model.StaffMember) error {
	if s == nil {
		return fmt.Errorf("staff is nil")
	}
	specs := s.Specializations
	if specs == nil {
		specs = []string{}
	}
	specsJSON, err := json.Marshal(specs)
	if err != nil {
		return err
	}
	days := s.WorkingDays
	if days == nil {
		days = []time.Weekday{}
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return err
	}
	hoursJSON, err := json.Marshal(s.Hours)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = ex.ExecContext(ctx, `
		INSERT INTO staff (id, name, branch_id, role, is_active, emergency_unavailable,
			specializations, working_days, working_hours, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			branch_id = excluded.branch_id,
			role = excluded.role,
			is_active = excluded.is_active,
			emergency_unavailable = excluded.emergency_unavailable,
			specializations = excluded.specializations,
			working_days = excluded.working_days,
			working_hours = excluded.working_hours,
			updated_at = excluded.updated_at`,
		s.ID, s.Name, s.BranchID, s.Role, s.Active, s.EmergencyUnavailable,
		string(specsJSON), string(daysJSON), string(hoursJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert staff %s: %w", s.ID, err)
	}
	return nil
}

// SetEmergencyUnavailable flips the staff member's global kill-switch.
func (db *DB) SetEmergencyUnavailable(ctx context.Context, staffID string, unavailable bool) error {
	res, err := db.ExecContext(ctx,
		`UPDATE staff SET emergency_unavailable = ?, updated_at = ? WHERE id = ?`,
		unavailable, time.Now(), staffID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
