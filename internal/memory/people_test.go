package memory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/0ld3ull/operator/internal/memory"
)

func newTestPeopleStore(t *testing.T) *memory.PeopleStore {
	t.Helper()
	store, err := memory.NewPeopleStore(filepath.Join(t.TempDir(), "people.db"))
	if err != nil {
		t.Fatalf("NewPeopleStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAddThenFind_RoundTrips(t *testing.T) {
	store := newTestPeopleStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "Jono", "@jono", "founder", "Runs FLIPT", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	people, err := store.Find(ctx, "jono")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(people) != 1 || people[0].ID != id {
		t.Fatalf("want to find the added person by name, got %+v", people)
	}
}

func TestRecordInteraction_IncrementsCounter(t *testing.T) {
	store := newTestPeopleStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "Jono", "", "founder", "", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.RecordInteraction(ctx, id, "telegram"); err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if err := store.RecordInteraction(ctx, id, "telegram"); err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}

	people, err := store.Find(ctx, "Jono")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(people) != 1 || people[0].Interactions != 2 {
		t.Fatalf("want 2 recorded interactions, got %+v", people)
	}
}

func TestFind_UnknownPersonReturnsEmpty(t *testing.T) {
	store := newTestPeopleStore(t)
	ctx := context.Background()

	people, err := store.Find(ctx, "nobody in particular")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(people) != 0 {
		t.Fatalf("want no matches for an unknown person, got %+v", people)
	}
}
