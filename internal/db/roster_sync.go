package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salonbook/internal/config"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SyncRoster applies roster.yaml to the database in one transaction. Services and
// staff are upserted and those missing from the file are marked inactive. Breaks
// and leave of every staff member in the file are replaced wholesale, so readers
// never observe a half-applied roster.
func (db *DB) SyncRoster(ctx context.Context, cfg *config.RosterConfig) error {
	if cfg == nil {
		return fmt.Errorf("roster config is nil")
	}

	staff, breaks, err := cfg.StaffModels()
	if err != nil {
		return err
	}
	leave, err := cfg.LeaveModels(db.loc)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seenServices := make(map[string]struct{})
	for _, s := range cfg.ServiceModels() {
		if err := upsertService(ctx, tx, &s); err != nil {
			return err
		}
		seenServices[s.ID] = struct{}{}
	}

	seenStaff := make(map[string]struct{})
	for i := range staff {
		id := staff[i].ID
		if err := upsertStaff(ctx, tx, &staff[i]); err != nil {
			return err
		}
		seenStaff[id] = struct{}{}
		if _, err := tx.ExecContext(ctx, `DELETE FROM staff_breaks WHERE staff_id = ?`, id); err != nil {
			return fmt.Errorf("clear breaks for %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM staff_leave WHERE staff_id = ?`, id); err != nil {
			return fmt.Errorf("clear leave for %s: %w", id, err)
		}
	}

	for i := range breaks {
		if err := upsertBreak(ctx, tx, &breaks[i]); err != nil {
			return err
		}
	}
	for i := range leave {
		if err := upsertLeave(ctx, tx, &leave[i]); err != nil {
			return err
		}
	}

	if err := deactivateMissing(ctx, tx, "services", seenServices); err != nil {
		return err
	}
	if err := deactivateMissing(ctx, tx, "staff", seenStaff); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster sync: %w", err)
	}

	db.logger.Info().
		Int("services", len(seenServices)).
		Int("staff", len(seenStaff)).
		Int("breaks", len(breaks)).
		Int("leave", len(leave)).
		Msg("Roster synced")
	return nil
}

// deactivateMissing marks rows of table whose id is not in seen inactive.
func deactivateMissing(ctx context.Context, ex execer, table string, seen map[string]struct{}) error {
	rows, err := ex.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE is_active = 1`, table))
	if err != nil {
		return err
	}

	var missing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	now := time.Now()
	for _, id := range missing {
		if _, err := ex.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET is_active = 0, updated_at = ? WHERE id = ?`, table), now, id,
		); err != nil {
			return fmt.Errorf("deactivate %s %s: %w", table, id, err)
		}
	}
	return nil
}
