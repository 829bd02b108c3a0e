// Package budget tracks per-project spend against daily/monthly ceilings
// (spec §3.7 TokenBudget), backed by the same SQLite handle as the audit
// log since both are low-volume, always-hot-read cross-cutting singletons.
package budget

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const createTable = `
CREATE TABLE IF NOT EXISTS token_budget (
	project    TEXT PRIMARY KEY,
	daily_limit   REAL NOT NULL DEFAULT 0,
	monthly_limit REAL NOT NULL DEFAULT 0,
	day_spend     REAL NOT NULL DEFAULT 0,
	month_spend   REAL NOT NULL DEFAULT 0,
	day_key       TEXT NOT NULL DEFAULT '',
	month_key     TEXT NOT NULL DEFAULT ''
)`

// Tracker enforces per-project daily/monthly spend ceilings.
type Tracker struct {
	db *sql.DB
}

// New wraps an already-open database handle (typically audit.Store.DB()).
func New(db *sql.DB) (*Tracker, error) {
	if _, err := db.Exec(createTable); err != nil {
		return nil, fmt.Errorf("create token_budget table: %w", err)
	}
	return &Tracker{db: db}, nil
}

// SetLimits configures the ceilings for a project. A limit of 0 means
// unbounded for that window.
func (t *Tracker) SetLimits(ctx context.Context, project string, dailyLimit, monthlyLimit float64) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO token_budget (project, daily_limit, monthly_limit, day_key, month_key)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(project) DO UPDATE SET daily_limit = excluded.daily_limit, monthly_limit = excluded.monthly_limit`,
		project, dailyLimit, monthlyLimit, dayKey(time.Now()), monthKey(time.Now()))
	if err != nil {
		return fmt.Errorf("set_limits %s: %w", project, err)
	}
	return nil
}

// Status is the current spend snapshot for a project.
type Status struct {
	Project      string
	DailyLimit   float64
	MonthlyLimit float64
	DaySpend     float64
	MonthSpend   float64
}

// WithinBudget reports whether adding cost to project's running spend would
// stay within both the daily and monthly ceilings.
func (s Status) WithinBudget(cost float64) bool {
	if s.DailyLimit > 0 && s.DaySpend+cost > s.DailyLimit {
		return false
	}
	if s.MonthlyLimit > 0 && s.MonthSpend+cost > s.MonthlyLimit {
		return false
	}
	return true
}

// RecordSpend adds cost to project's running daily/monthly totals, rolling
// each window over if the stored day/month key has advanced since the last
// write, and returns the post-write status.
func (t *Tracker) RecordSpend(ctx context.Context, project string, cost float64) (Status, error) {
	now := time.Now().UTC()
	dk, mk := dayKey(now), monthKey(now)

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return Status{}, fmt.Errorf("record_spend begin: %w", err)
	}
	defer tx.Rollback()

	var limitDaily, limitMonthly, daySpend, monthSpend float64
	var storedDK, storedMK string
	err = tx.QueryRowContext(ctx,
		`SELECT daily_limit, monthly_limit, day_spend, month_spend, day_key, month_key FROM token_budget WHERE project = ?`,
		project).Scan(&limitDaily, &limitMonthly, &daySpend, &monthSpend, &storedDK, &storedMK)
	if err == sql.ErrNoRows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO token_budget (project, day_key, month_key) VALUES (?, ?, ?)`, project, dk, mk); err != nil {
			return Status{}, fmt.Errorf("record_spend insert: %w", err)
		}
		storedDK, storedMK = dk, mk
	} else if err != nil {
		return Status{}, fmt.Errorf("record_spend lookup: %w", err)
	}

	if storedDK != dk {
		daySpend = 0
	}
	if storedMK != mk {
		monthSpend = 0
	}
	daySpend += cost
	monthSpend += cost

	if _, err := tx.ExecContext(ctx,
		`UPDATE token_budget SET day_spend = ?, month_spend = ?, day_key = ?, month_key = ? WHERE project = ?`,
		daySpend, monthSpend, dk, mk, project); err != nil {
		return Status{}, fmt.Errorf("record_spend update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Status{}, fmt.Errorf("record_spend commit: %w", err)
	}

	return Status{
		Project:      project,
		DailyLimit:   limitDaily,
		MonthlyLimit: limitMonthly,
		DaySpend:     daySpend,
		MonthSpend:   monthSpend,
	}, nil
}

// Get returns the current status for project, rolled over to the present
// day/month but without recording any new spend.
func (t *Tracker) Get(ctx context.Context, project string) (Status, error) {
	now := time.Now().UTC()
	dk, mk := dayKey(now), monthKey(now)

	var limitDaily, limitMonthly, daySpend, monthSpend float64
	var storedDK, storedMK string
	err := t.db.QueryRowContext(ctx,
		`SELECT daily_limit, monthly_limit, day_spend, month_spend, day_key, month_key FROM token_budget WHERE project = ?`,
		project).Scan(&limitDaily, &limitMonthly, &daySpend, &monthSpend, &storedDK, &storedMK)
	if err == sql.ErrNoRows {
		return Status{Project: project}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("get budget %s: %w", project, err)
	}
	if storedDK != dk {
		daySpend = 0
	}
	if storedMK != mk {
		monthSpend = 0
	}
	return Status{
		Project:      project,
		DailyLimit:   limitDaily,
		MonthlyLimit: limitMonthly,
		DaySpend:     daySpend,
		MonthSpend:   monthSpend,
	}, nil
}

func dayKey(t time.Time) string   { return t.UTC().Format("2006-01-02") }
func monthKey(t time.Time) string { return t.UTC().Format("2006-01") }
