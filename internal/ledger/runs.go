package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// CreateRun records the start of a run.
func (s *Store) CreateRun(ctx context.Context, id, outputPath string, settings Settings) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("run id is empty")
	}
	payload, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	started := time.Now().UTC()
	if _, err := s.exec(ctx,
		`INSERT INTO runs (id, started_at, output_path, settings_json) VALUES (?, ?, ?, ?)`,
		id, formatTime(started), outputPath, string(payload),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{ID: id, StartedAt: started, OutputPath: outputPath, Settings: settings}, nil
}

// FinishRun stamps the finish time and the unit tallies.
func (s *Store) FinishRun(ctx context.Context, id string, total, failed int) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, total_units = ?, failed_units = ? WHERE id = ?`,
		formatTime(time.Now()), total, failed, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, output_path, settings_json, total_units, failed_units`

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, strings.TrimSpace(id))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func scanRun(row *sql.Row) (*Run, error) {
	var (
		run      Run
		started  sql.NullString
		finished sql.NullString
		settings string
	)
	if err := row.Scan(&run.ID, &started, &finished, &run.OutputPath, &settings, &run.TotalUnits, &run.FailedUnits); err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	if settings != "" {
		if err := json.Unmarshal([]byte(settings), &run.Settings); err != nil {
			return nil, fmt.Errorf("decode settings for run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}
