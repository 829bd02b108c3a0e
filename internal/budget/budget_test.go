package budget_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/0ld3ull/operator/internal/budget"
	_ "modernc.org/sqlite"
)

func newTestTracker(t *testing.T) *budget.Tracker {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	tr, err := budget.New(db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestRecordSpend_AccumulatesWithinWindow(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.SetLimits(ctx, "p", 10, 100); err != nil {
		t.Fatalf("SetLimits: %v", err)
	}

	st, err := tr.RecordSpend(ctx, "p", 3)
	if err != nil {
		t.Fatalf("RecordSpend: %v", err)
	}
	if st.DaySpend != 3 || st.MonthSpend != 3 {
		t.Fatalf("want day/month spend 3, got %+v", st)
	}

	st, err = tr.RecordSpend(ctx, "p", 4)
	if err != nil {
		t.Fatalf("RecordSpend (2nd): %v", err)
	}
	if st.DaySpend != 7 {
		t.Fatalf("want accumulated day spend 7, got %v", st.DaySpend)
	}
}

func TestWithinBudget_RespectsLimits(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	tr.SetLimits(ctx, "p", 10, 20)
	tr.RecordSpend(ctx, "p", 8)

	st, err := tr.Get(ctx, "p")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.WithinBudget(1) == false {
		t.Fatal("want 8+1=9 <= 10 to be within budget")
	}
	if st.WithinBudget(5) == true {
		t.Fatal("want 8+5=13 > 10 to exceed daily budget")
	}
}

func TestGet_UnknownProjectReturnsZeroStatus(t *testing.T) {
	tr := newTestTracker(t)
	st, err := tr.Get(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.DaySpend != 0 || st.DailyLimit != 0 {
		t.Fatalf("want zero-value status for unseen project, got %+v", st)
	}
}
