package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrSlotTaken = errors.New("slot already taken")
)

// dateLayout is how calendar days are stored.
const dateLayout = "2006-01-02"

// DB wraps sql.DB for the salon data store.
type DB struct {
	*sql.DB
	loc    *time.Location
	logger *zerolog.Logger
}

// NewDB opens the database at path and creates tables if they don't exist.
// Stored calendar days are interpreted in loc.
func NewDB(path string, loc *time.Location, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if loc == nil {
		loc = time.Local
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect db: %w", err)
	}

	db := &DB{DB: sqlDB, loc: loc, logger: logger}
	if err := db.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return db, nil
}

// Location returns the zone stored days are read in.
func (db *DB) Location() *time.Location {
	return db.loc
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS services (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT,
			duration_minutes INTEGER NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Working days, hours and specializations are stored as JSON.
		`CREATE TABLE IF NOT EXISTS staff (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			branch_id TEXT,
			role TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			emergency_unavailable BOOLEAN NOT NULL DEFAULT 0,
			specializations TEXT NOT NULL DEFAULT '[]',
			working_days TEXT NOT NULL DEFAULT '[]',
			working_hours TEXT NOT NULL DEFAULT 'null',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS staff_breaks (
			id TEXT PRIMARY KEY,
			staff_id TEXT NOT NULL,
			start_minute INTEGER NOT NULL,
			end_minute INTEGER NOT NULL,
			weekday INTEGER,
			is_recurring BOOLEAN NOT NULL DEFAULT 0,
			FOREIGN KEY (staff_id) REFERENCES staff(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS staff_leave (
			id TEXT PRIMARY KEY,
			staff_id TEXT NOT NULL,
			start_unix INTEGER NOT NULL,
			end_unix INTEGER NOT NULL,
			leave_type TEXT NOT NULL,
			note TEXT,
			FOREIGN KEY (staff_id) REFERENCES staff(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			staff_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			service_id TEXT,
			date TEXT NOT NULL,
			start_minute INTEGER NOT NULL,
			duration_minutes INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'Pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (staff_id) REFERENCES staff(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_staff_active ON staff(is_active, branch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_breaks_staff ON staff_breaks(staff_id, weekday)`,
		`CREATE INDEX IF NOT EXISTS idx_leave_staff ON staff_leave(staff_id, start_unix, end_unix)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_staff_date ON appointments(staff_id, date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_customer ON appointments(customer_id, staff_id, date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Ready pings the database.
func (db *DB) Ready(ctx context.Context) error {
	return db.PingContext(ctx)
}

func dateKey(t time.Time) string {
	return t.Format(dateLayout)
}

func (db *DB) parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, db.loc)
}
