package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AddUnits inserts pending units for a run in one transaction.
func (s *Store) AddUnits(ctx context.Context, runID string, units []Unit) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO units (run_id, combination, replicate, name, segment, status, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := formatTime(time.Now())
		for _, u := range units {
			if _, err := stmt.ExecContext(ctx, runID, u.Combination, u.Replicate, u.Name, u.Segment, StatusPending, now); err != nil {
				return fmt.Errorf("insert unit %d/%d: %w", u.Combination, u.Replicate, err)
			}
		}
		return tx.Commit()
	})
}

// MarkRunning moves a unit to running.
func (s *Store) MarkRunning(ctx context.Context, runID string, key UnitKey) error {
	return s.updateUnit(ctx,
		`UPDATE units SET status = ?, updated_at = ? WHERE run_id = ? AND combination = ? AND replicate = ?`,
		StatusRunning, formatTime(time.Now()), runID, key.Combination, key.Replicate)
}

// MarkDone records a successful search.
func (s *Store) MarkDone(ctx context.Context, runID string, key UnitKey, transitions, probes int) error {
	return s.updateUnit(ctx,
		`UPDATE units SET status = ?, transitions = ?, probes = ?, error_message = '', updated_at = ?
		 WHERE run_id = ? AND combination = ? AND replicate = ?`,
		StatusDone, transitions, probes, formatTime(time.Now()), runID, key.Combination, key.Replicate)
}

// MarkFailed records a failed search along with its error text.
func (s *Store) MarkFailed(ctx context.Context, runID string, key UnitKey, probes int, message string) error {
	return s.updateUnit(ctx,
		`UPDATE units SET status = ?, probes = ?, error_message = ?, updated_at = ?
		 WHERE run_id = ? AND combination = ? AND replicate = ?`,
		StatusFailed, probes, message, formatTime(time.Now()), runID, key.Combination, key.Replicate)
}

func (s *Store) updateUnit(ctx context.Context, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update unit: no unit matched %v", args[len(args)-3:])
	}
	return nil
}

// ListUnits returns a run's units in (combination, replicate) order.
func (s *Store) ListUnits(ctx context.Context, runID string) ([]Unit, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, combination, replicate, name, segment, status, transitions, probes, error_message, updated_at
		 FROM units WHERE run_id = ? ORDER BY combination, replicate`, runID)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var (
			u       Unit
			status  string
			updated sql.NullString
		)
		if err := rows.Scan(&u.RunID, &u.Combination, &u.Replicate, &u.Name, &u.Segment, &status,
			&u.Transitions, &u.Probes, &u.Error, &updated); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.Status = Status(status)
		u.UpdatedAt = parseTime(updated)
		units = append(units, u)
	}
	return units, rows.Err()
}

// CountByStatus tallies a run's units per status.
func (s *Store) CountByStatus(ctx context.Context, runID string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM units WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("count units: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}
