package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salonbook/internal/model"
)

// ListBreaks returns breaks of staffID tied to day or recurring every day.
func (db *DB) ListBreaks(ctx context.Context, staffID string, day time.Weekday) ([]model.Break, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, staff_id, start_minute, end_minute, weekday, is_recurring
		FROM staff_breaks
		WHERE staff_id = ? AND (is_recurring = 1 OR weekday = ?)
		ORDER BY start_minute`,
		staffID, int(day),
	)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}
	defer rows.Close()

	var out []model.Break
	for rows.Next() {
		var b model.Break
		var weekday sql.NullInt64
		if err := rows.Scan(&b.ID, &b.StaffID, &b.Start, &b.End, &weekday, &b.Recurring); err != nil {
			return nil, err
		}
		if weekday.Valid {
			b.Weekday = time.Weekday(weekday.Int64)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListLeave returns leave records of staffID overlapping the calendar day of date.
func (db *DB) ListLeave(ctx context.Context, staffID string, date time.Time) ([]model.LeaveRecord, error) {
	dayStart := model.DateOnly(date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := db.QueryContext(ctx, `
		SELECT id, staff_id, start_unix, end_unix, leave_type, note
		FROM staff_leave
		WHERE staff_id = ? AND start_unix < ? AND end_unix > ?
		ORDER BY start_unix`,
		staffID, dayEnd.Unix(), dayStart.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("list leave: %w", err)
	}
	defer rows.Close()

	var out []model.LeaveRecord
	for rows.Next() {
		var l model.LeaveRecord
		var start, end int64
		var typ string
		var note sql.NullString
		if err := rows.Scan(&l.ID, &l.StaffID, &start, &end, &typ, &note); err != nil {
			return nil, err
		}
		l.Start = time.Unix(start, 0).In(db.loc)
		l.End = time.Unix(end, 0).In(db.loc)
		l.Type = model.LeaveType(typ)
		l.Note = note.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertBreak creates or updates a break.
func (db *DB) UpsertBreak(ctx context.Context, b *model.Break) error {
	return upsertBreak(ctx, db.DB, b)
}

func upsertBreak(ctx context.Context, ex execer, b *model.Break) error {
	var weekday any
	if !b.Recurring {
		weekday = int(b.Weekday)
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO staff_breaks (id, staff_id, start_minute, end_minute, weekday, is_recurring)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			staff_id = excluded.staff_id,
			start_minute = excluded.start_minute,
			end_minute = excluded.end_minute,
			weekday = excluded.weekday,
			is_recurring = excluded.is_recurring`,
		b.ID, b.StaffID, b.Start, b.End, weekday, b.Recurring,
	)
	if err != nil {
		return fmt.Errorf("upsert break %s: %w", b.ID, err)
	}
	return nil
}

// UpsertLeave creates or updates a leave record.
func (db *DB) UpsertLeave(ctx context.Context, l *model.LeaveRecord) error {
	return upsertLeave(ctx, db.DB, l)
}

func upsertLeave(ctx context.Context, ex execer, l *model.LeaveRecord) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO staff_leave (id, staff_id, start_unix, end_unix, leave_type, note)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			staff_id = excluded.staff_id,
			start_unix = excluded.start_unix,
			end_unix = excluded.end_unix,
			leave_type = excluded.leave_type,
			note = excluded.note`,
		l.ID, l.StaffID, l.Start.Unix(), l.End.Unix(), string(l.Type), l.Note,
	)
	if err != nil {
		return fmt.Errorf("upsert leave %s: %w", l.ID, err)
	}
	return nil
}
