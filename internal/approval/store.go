package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/0ld3ull/operator/internal/apperr"
	"github.com/0ld3ull/operator/internal/migration"
	"github.com/0ld3ull/operator/internal/telemetry"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const createApprovalsTable = `
CREATE TABLE IF NOT EXISTS approvals (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id       TEXT NOT NULL,
	agent_id         TEXT NOT NULL,
	action_type      TEXT NOT NULL,
	action_data      TEXT NOT NULL,
	context_summary  TEXT NOT NULL DEFAULT '',
	cost_estimate    REAL NOT NULL DEFAULT 0,
	status           TEXT NOT NULL,
	operator_notes   TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	reviewed_at      TEXT,
	executed_at      TEXT
)`

const createIndices = `
CREATE INDEX IF NOT EXISTS idx_approvals_status ON approvals(status);
CREATE INDEX IF NOT EXISTS idx_approvals_project ON approvals(project_id);
CREATE INDEX IF NOT EXISTS idx_approvals_action_type ON approvals(action_type);
`

// Store is the SQLite-backed Approval Queue. Every operation is a single
// short transaction or a single statement; the approve/reject/mark_executed
// read-modify-write patterns use a single UPDATE with a WHERE on the
// expected current status, so lost-update across concurrent callers is
// structurally impossible — the caller only ever learns whether its own
// statement affected a row.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if necessary) the SQLite file at dbPath and
// ensures its schema is current.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open approval store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(createApprovalsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create approvals table: %w", err)
	}
	if _, err := db.Exec(createIndices); err != nil {
		db.Close()
		return nil, fmt.Errorf("create approvals indices: %w", err)
	}
	if err := ensureColumn(db, "approvals", "operator_notes", "TEXT NOT NULL DEFAULT ''"); err != nil {
		db.Close()
		return nil, err
	}

	if err := migration.EnsureVersion(db, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema version: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func ensureColumn(db *sql.DB, table, column, ddl string) error {
	ok, err := hasColumn(db, table, column)
	if err != nil {
		return fmt.Errorf("check column %s.%s: %w", table, column, err)
	}
	if ok {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, ddl)); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

// Submit inserts a new pending Approval and returns its id.
func (s *Store) Submit(ctx context.Context, projectID, agentID, actionType string, actionData json.RawMessage, contextSummary string, costEstimate float64) (int64, error) {
	if len(actionData) == 0 {
		actionData = json.RawMessage("{}")
	}
	now := nowString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO approvals (project_id, agent_id, action_type, action_data, context_summary, cost_estimate, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		projectID, agentID, actionType, string(actionData), contextSummary, costEstimate, string(StatusPending), now,
	)
	if err != nil {
		return 0, fmt.Errorf("submit approval: %w", err)
	}
	return res.LastInsertId()
}

// transition performs the UPDATE-WHERE-status idiom: it only succeeds when
// the row currently has status fromStatus. A zero-rows-affected result means
// either the row doesn't exist or it is no longer in fromStatus — in both
// cases the caller gets apperr.ErrAlreadyTerminal/ErrNotFound rather than a
// partial mutation.
func (s *Store) transition(ctx context.Context, id int64, fromStatus, toStatus Status, extra string, args ...any) error {
	query := fmt.Sprintf(`UPDATE approvals SET status = ?%s WHERE id = ? AND status = ?`, extra)
	full := append([]any{string(toStatus)}, args...)
	full = append(full, id, string(fromStatus))

	res, err := s.db.ExecContext(ctx, query, full...)
	if err != nil {
		return fmt.Errorf("transition approval %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition approval %d rows affected: %w", id, err)
	}
	if rows == 0 {
		existing, getErr := s.GetByID(ctx, id)
		if getErr != nil || existing == nil {
			return apperr.New(apperr.KindStateViolation, "transition", apperr.ErrNotFound)
		}
		return apperr.New(apperr.KindStateViolation, "transition", apperr.ErrAlreadyTerminal)
	}
	return nil
}

// Approve atomically transitions id from pending to approved.
func (s *Store) Approve(ctx context.Context, id int64, notes string) (*Approval, error) {
	_, span := telemetry.StartApprovalSpan(ctx, "approve", id)
	defer span.End()

	now := nowString()
	err := s.transition(ctx, id, StatusPending, StatusApproved, ", operator_notes = ?, reviewed_at = ?", notes, now)
	if err != nil && !apperr.IsAlreadyTerminal(err) {
		return nil, err
	}
	if err != nil {
		// Already decided: idempotent no-op per the round-trip law — return
		// current state rather than erroring the caller off a retry.
		return s.GetByID(ctx, id)
	}
	telemetry.RecordApproval("approved")
	return s.GetByID(ctx, id)
}

// EditAndApprove atomically rewrites action_data and transitions pending to edited.
func (s *Store) EditAndApprove(ctx context.Context, id int64, newActionData json.RawMessage, notes string) (*Approval, error) {
	now := nowString()
	err := s.transition(ctx, id, StatusPending, StatusEdited,
		", action_data = ?, operator_notes = ?, reviewed_at = ?", string(newActionData), notes, now)
	if err != nil && !apperr.IsAlreadyTerminal(err) {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Reject atomically transitions pending to rejected.
func (s *Store) Reject(ctx context.Context, id int64, reason string) (*Approval, error) {
	_, span := telemetry.StartApprovalSpan(ctx, "reject", id)
	defer span.End()

	err := s.transition(ctx, id, StatusPending, StatusRejected, ", operator_notes = ?", reason)
	if err != nil && !apperr.IsAlreadyTerminal(err) {
		return nil, err
	}
	if err == nil {
		telemetry.RecordApproval("rejected")
	}
	return s.GetByID(ctx, id)
}

// MarkExecuted sets executed_at=now. It is idempotent: a second call on an
// already-executed row is a no-op, never a dual-execution signal.
func (s *Store) MarkExecuted(ctx context.Context, id int64) error {
	_, span := telemetry.StartApprovalSpan(ctx, "mark_executed", id)
	defer span.End()

	now := nowString()
	res, err := s.db.ExecContext(ctx,
		`UPDATE approvals SET executed_at = ?
		 WHERE id = ? AND executed_at IS NULL AND status IN (?, ?)`,
		now, id, string(StatusApproved), string(StatusEdited),
	)
	if err != nil {
		return fmt.Errorf("mark_executed %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark_executed %d rows affected: %w", id, err)
	}
	if rows == 0 {
		// Either already executed, not yet approved, or missing — all are
		// safe no-ops per the spec's idempotence requirement.
		return nil
	}
	telemetry.RecordApproval("executed")
	return nil
}

// GetPending returns pending rows ordered by created_at ASC, optionally
// filtered by project.
func (s *Store) GetPending(ctx context.Context, project string) ([]*Approval, error) {
	query := `SELECT id, project_id, agent_id, action_type, action_data, context_summary, cost_estimate, status, operator_notes, created_at, reviewed_at, executed_at
	          FROM approvals WHERE status = ?`
	args := []any{string(StatusPending)}
	if project != "" {
		query += " AND project_id = ?"
		args = append(args, project)
	}
	query += " ORDER BY created_at ASC"
	return s.query(ctx, query, args...)
}

// GetByID returns the row with id, or nil if none exists.
func (s *Store) GetByID(ctx context.Context, id int64) (*Approval, error) {
	rows, err := s.query(ctx, `SELECT id, project_id, agent_id, action_type, action_data, context_summary, cost_estimate, status, operator_notes, created_at, reviewed_at, executed_at
	          FROM approvals WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetApprovedUnexecuted returns status in {approved, edited} with
// executed_at IS NULL, ordered by reviewed_at. Used for crash recovery.
func (s *Store) GetApprovedUnexecuted(ctx context.Context) ([]*Approval, error) {
	return s.query(ctx, `SELECT id, project_id, agent_id, action_type, action_data, context_summary, cost_estimate, status, operator_notes, created_at, reviewed_at, executed_at
	          FROM approvals WHERE status IN (?, ?) AND executed_at IS NULL ORDER BY reviewed_at ASC`,
		string(StatusApproved), string(StatusEdited))
}

// GetLastExecuted returns the most recently executed row of actionType, or
// nil if none exists.
func (s *Store) GetLastExecuted(ctx context.Context, actionType string) (*Approval, error) {
	rows, err := s.query(ctx, `SELECT id, project_id, agent_id, action_type, action_data, context_summary, cost_estimate, status, operator_notes, created_at, reviewed_at, executed_at
	          FROM approvals WHERE action_type = ? AND executed_at IS NOT NULL ORDER BY executed_at DESC LIMIT 1`, actionType)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ExpireOld transitions pending rows older than expiryHours to expired and
// returns the count of rows changed.
func (s *Store) ExpireOld(ctx context.Context, expiryHours int) (int, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(expiryHours) * time.Hour)
	res, err := s.db.ExecContext(ctx,
		`UPDATE approvals SET status = ? WHERE status = ? AND julianday(created_at) < julianday(?)`,
		string(StatusExpired), string(StatusPending), cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("expire_old: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire_old rows affected: %w", err)
	}
	for i := int64(0); i < rows; i++ {
		telemetry.RecordApproval("expired")
	}
	return int(rows), nil
}

// GetStats returns counts grouped by status, optionally filtered by project.
func (s *Store) GetStats(ctx context.Context, project string) (Stats, error) {
	query := `SELECT status, COUNT(*) FROM approvals`
	var args []any
	if project != "" {
		query += ` WHERE project_id = ?`
		args = append(args, project)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Stats{}, fmt.Errorf("get_stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("get_stats scan: %w", err)
		}
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusApproved:
			stats.Approved = count
		case StatusRejected:
			stats.Rejected = count
		case StatusEdited:
			stats.Edited = count
		case StatusExpired:
			stats.Expired = count
		}
	}
	return stats, rows.Err()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Approval, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	var out []*Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApproval(row scanner) (*Approval, error) {
	var a Approval
	var actionData, status string
	var reviewedAt, executedAt sql.NullString
	var createdAt string

	if err := row.Scan(&a.ID, &a.ProjectID, &a.AgentID, &a.ActionType, &actionData,
		&a.ContextSummary, &a.CostEstimate, &status, &a.OperatorNotes, &createdAt, &reviewedAt, &executedAt); err != nil {
		return nil, fmt.Errorf("scan approval: %w", err)
	}

	a.ActionData = json.RawMessage(actionData)
	a.Status = Status(status)

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	a.CreatedAt = t

	if reviewedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, reviewedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse reviewed_at: %w", err)
		}
		a.ReviewedAt = &t
	}
	if executedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, executedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse executed_at: %w", err)
		}
		a.ExecutedAt = &t
	}

	return &a, nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
