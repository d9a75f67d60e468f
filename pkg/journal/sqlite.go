package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arnavsurve/pagestep/pkg/types"
	_ "modernc.org/sqlite"
)

// SQLiteJournal keeps terminal job records in a queryable table.
type SQLiteJournal struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	j := &SQLiteJournal{db: db, now: time.Now}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func (j *SQLiteJournal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS job_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		logged_at TIMESTAMP NOT NULL,
		job_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_job_log_job ON job_log(job_id);
	`

	_, err := j.db.Exec(schema)
	return err
}

func (j *SQLiteJournal) Append(ctx context.Context, job types.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO job_log (logged_at, job_id, run_id, status, error, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.now().UTC(), job.ID, job.RunID, string(job.Status), job.Error, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to journal job %s: %w", job.ID, err)
	}
	return nil
}

// List returns the most recent entries first. A non-empty jobID restricts
// the result to that job.
func (j *SQLiteJournal) List(ctx context.Context, jobID string, limit int) ([]Entry, error) {
	query := `SELECT logged_at, payload FROM job_log`
	args := []any{}
	if jobID != "" {
		query += ` WHERE job_id = ?`
		args = append(args, jobID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var loggedAt time.Time
		var payload string
		if err := rows.Scan(&loggedAt, &payload); err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal([]byte(payload), &e.Job); err != nil {
			return nil, fmt.Errorf("decoding journal payload: %w", err)
		}
		e.Timestamp = loggedAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
