package research_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/0ld3ull/operator/internal/research"
)

func newTestStore(t *testing.T) *research.Store {
	t.Helper()
	store, err := research.NewStore(filepath.Join(t.TempDir(), "research.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFilterNew_DropsAlreadySavedSourceID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := research.ResearchItem{Source: "rss", SourceID: "feed:1", Title: "First"}
	if err := store.SaveBatch(ctx, []research.ResearchItem{item}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	fresh, err := store.FilterNew(ctx, []research.ResearchItem{
		item,
		{Source: "rss", SourceID: "feed:2", Title: "Second"},
	})
	if err != nil {
		t.Fatalf("FilterNew: %v", err)
	}
	if len(fresh) != 1 || fresh[0].SourceID != "feed:2" {
		t.Fatalf("want only the unseen item to survive dedup, got %+v", fresh)
	}
}

func TestSaveBatch_IgnoresDuplicateSourceIDRace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := research.ResearchItem{Source: "rss", SourceID: "feed:1", Title: "First"}
	if err := store.SaveBatch(ctx, []research.ResearchItem{item, item}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats["total_items"] != 1 {
		t.Fatalf("want exactly one saved row despite the duplicate insert, got %v", stats["total_items"])
	}
}

func TestRecentFindings_OrderedByRelevanceDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveBatch(ctx, []research.ResearchItem{
		{Source: "rss", SourceID: "a", Title: "Low", RelevanceScore: 2},
		{Source: "rss", SourceID: "b", Title: "High", RelevanceScore: 9},
	})
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	findings, err := store.RecentFindings(ctx, time.Time{}, 10)
	if err != nil {
		t.Fatalf("RecentFindings: %v", err)
	}
	if len(findings) != 2 || findings[0].Title != "High" {
		t.Fatalf("want highest-relevance item first, got %+v", findings)
	}
}

func TestRecordDigestThenHistory_RoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := research.Digest{Scraped: 10, New: 3, Relevant: 1, Errors: []string{"rss: timeout"}}
	if err := store.RecordDigest(ctx, d); err != nil {
		t.Fatalf("RecordDigest: %v", err)
	}

	history, err := store.DigestHistory(ctx, 5)
	if err != nil {
		t.Fatalf("DigestHistory: %v", err)
	}
	if len(history) != 1 || history[0].Scraped != 10 || len(history[0].Errors) != 1 {
		t.Fatalf("want the recorded digest back, got %+v", history)
	}
}
