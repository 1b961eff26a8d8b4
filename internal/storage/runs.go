package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunStatusSuccess   = "success"
	RunStatusCancelled = "cancelled"
	RunStatusError     = "error"
)

// RunLog is one recorded run attempt.
type RunLog struct {
	ID         string
	RunID      string
	Profile    string
	Status     string
	Error      string
	Scanned    int64
	Inserted   int64
	Skipped    int64
	Errors     int64
	Files      int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunStore persists run history.
type RunStore struct {
	db *DB
}

func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun records one finished attempt. The log's ID is assigned here.
func (s *RunStore) CreateRun(l *RunLog) error {
	l.ID = uuid.NewString()
	_, err := s.db.conn.Exec(
		`INSERT INTO migration_runs
		 (id, run_id, profile, status, error, scanned, inserted, skipped, errors, files, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.RunID, l.Profile, l.Status, l.Error,
		l.Scanned, l.Inserted, l.Skipped, l.Errors, l.Files,
		l.StartedAt, l.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// ListRuns returns the most recent attempts for a run ID, newest first.
// An empty runID lists across all runs.
func (s *RunStore) ListRuns(runID string, limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, run_id, profile, status, error, scanned, inserted, skipped, errors, files, started_at, finished_at
		FROM migration_runs`
	args := []any{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	defer rows.Close()

	var logs []RunLog
	for rows.Next() {
		var l RunLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Profile, &l.Status, &l.Error,
			&l.Scanned, &l.Inserted, &l.Skipped, &l.Errors, &l.Files,
			&l.StartedAt, &l.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
