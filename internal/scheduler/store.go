package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/0ld3ull/operator/internal/migration"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const createTable = `
CREATE TABLE IF NOT EXISTS scheduled_content (
	job_id         TEXT PRIMARY KEY,
	content_type   TEXT NOT NULL,
	content_data   TEXT NOT NULL,
	scheduled_time TEXT NOT NULL,
	status         TEXT NOT NULL,
	executed_at    TEXT,
	result         TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
)`

const createIndices = `
CREATE INDEX IF NOT EXISTS idx_scheduled_status ON scheduled_content(status);
CREATE INDEX IF NOT EXISTS idx_scheduled_time ON scheduled_content(scheduled_time);
`

// Store is the SQLite-backed durable table behind the Content Scheduler.
type Store struct {
	db *sql.DB
}

// NewStore opens dbPath and ensures the scheduled_content schema is current.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open scheduler store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create scheduled_content table: %w", err)
	}
	if _, err := db.Exec(createIndices); err != nil {
		db.Close()
		return nil, fmt.Errorf("create scheduled_content indices: %w", err)
	}
	if err := migration.EnsureVersion(db, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema version: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Insert persists a new pending job row. Fails if jobID already exists.
func (s *Store) Insert(ctx context.Context, job *ScheduledJob) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_content (job_id, content_type, content_data, scheduled_time, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		job.JobID, job.ContentType, job.ContentData,
		job.ScheduledTime.UTC().Format(time.RFC3339Nano), string(StatusPending),
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert scheduled job %s: %w", job.JobID, err)
	}
	return nil
}

// Upsert replaces any existing row with jobID with a fresh pending row —
// used by reschedule/cancel-then-recreate flows where the caller already
// holds the authoritative new definition.
func (s *Store) Upsert(ctx context.Context, job *ScheduledJob) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_content (job_id, content_type, content_data, scheduled_time, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
			content_type = excluded.content_type,
			content_data = excluded.content_data,
			scheduled_time = excluded.scheduled_time,
			status = excluded.status,
			executed_at = NULL,
			result = '',
			created_at = excluded.created_at`,
		job.JobID, job.ContentType, job.ContentData,
		job.ScheduledTime.UTC().Format(time.RFC3339Nano), string(StatusPending),
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert scheduled job %s: %w", job.JobID, err)
	}
	return nil
}

// Get returns the row with jobID, or nil if none exists.
func (s *Store) Get(ctx context.Context, jobID string) (*ScheduledJob, error) {
	rows, err := s.query(ctx, `SELECT job_id, content_type, content_data, scheduled_time, status, executed_at, result, created_at
	          FROM scheduled_content WHERE job_id = ?`, jobID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListPending returns all pending rows ordered by scheduled_time ASC —
// the order in which catch-up dispatch and normal firing must proceed.
func (s *Store) ListPending(ctx context.Context) ([]*ScheduledJob, error) {
	return s.query(ctx, `SELECT job_id, content_type, content_data, scheduled_time, status, executed_at, result, created_at
	          FROM scheduled_content WHERE status = ? ORDER BY scheduled_time ASC`, string(StatusPending))
}

// ListUpcoming returns pending rows scheduled within the next `hours`.
func (s *Store) ListUpcoming(ctx context.Context, hours float64) ([]*ScheduledJob, error) {
	cutoff := time.Now().UTC().Add(time.Duration(hours * float64(time.Hour)))
	return s.query(ctx, `SELECT job_id, content_type, content_data, scheduled_time, status, executed_at, result, created_at
	          FROM scheduled_content WHERE status = ? AND scheduled_time <= ? ORDER BY scheduled_time ASC`,
		string(StatusPending), cutoff.Format(time.RFC3339Nano))
}

// Cancel transitions jobID from pending to cancelled. Returns false if the
// row was not in pending status (or didn't exist) — a state-violation no-op.
func (s *Store) Cancel(ctx context.Context, jobID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_content SET status = ? WHERE job_id = ? AND status = ?`,
		string(StatusCancelled), jobID, string(StatusPending))
	if err != nil {
		return false, fmt.Errorf("cancel %s: %w", jobID, err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// Reschedule moves a pending job to a new scheduled_time. Returns false if
// the row was not pending.
func (s *Store) Reschedule(ctx context.Context, jobID string, newTime time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_content SET scheduled_time = ? WHERE job_id = ? AND status = ?`,
		newTime.UTC().Format(time.RFC3339Nano), jobID, string(StatusPending))
	if err != nil {
		return false, fmt.Errorf("reschedule %s: %w", jobID, err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// claim performs the exactly-once transition out of pending: at most one
// caller observes rows==1 for a given jobID, matching spec invariant 2
// (scheduler exactly-once fire).
func (s *Store) claim(ctx context.Context, jobID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_content SET status = 'claimed' WHERE job_id = ? AND status = ?`,
		jobID, string(StatusPending))
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", jobID, err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// complete records a terminal outcome (executed or failed) for a claimed job.
func (s *Store) complete(ctx context.Context, jobID string, status Status, result string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var executedAt any
	if status == StatusExecuted {
		executedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_content SET status = ?, executed_at = ?, result = ? WHERE job_id = ?`,
		string(status), executedAt, result, jobID)
	if err != nil {
		return fmt.Errorf("complete %s: %w", jobID, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scheduled_content: %w", err)
	}
	defer rows.Close()

	var out []*ScheduledJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*ScheduledJob, error) {
	var j ScheduledJob
	var status, scheduledTime, createdAt string
	var executedAt sql.NullString

	if err := row.Scan(&j.JobID, &j.ContentType, &j.ContentData, &scheduledTime, &status, &executedAt, &j.Result, &createdAt); err != nil {
		return nil, fmt.Errorf("scan scheduled job: %w", err)
	}
	j.Status = Status(status)

	t, err := time.Parse(time.RFC3339Nano, scheduledTime)
	if err != nil {
		return nil, fmt.Errorf("parse scheduled_time: %w", err)
	}
	j.ScheduledTime = t

	t, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	j.CreatedAt = t

	if executedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, executedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse executed_at: %w", err)
		}
		j.ExecutedAt = &t
	}

	return &j, nil
}
