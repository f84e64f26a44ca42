package store

import (
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateAppliesOnFreshDB(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed || result.From != 0 || result.Version != 2 {
		t.Errorf("first Migrate() = %+v, want 0 -> 2", result)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so run it again to check idempotency.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 || result.From != 2 {
		t.Errorf("result = %+v, want version 2 (init + memberships)", result)
	}
	if err := db.Checkpoint(); err != nil {
		t.Errorf("Checkpoint() error: %v", err)
	}
}

func TestAppendEventIdempotent(t *testing.T) {
	db := testDB(t)

	e := &Entry{EntryID: "e1", Category: CategoryInbound, Name: "new_message", ConversationID: "c1", Payload: `{"id":1}`}
	if err := db.AppendEvent(e); err != nil {
		t.Fatal(err)
	}
	dup := *e
	dup.Payload = `{"id":2}`
	if err := db.AppendEvent(&dup); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListEvents("", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1 (idempotent append failed)", len(got))
	}
	if got[0].Payload != `{"id":1}` || got[0].CreatedAt == 0 {
		t.Errorf("entry = %+v", got[0])
	}
}

func TestAppendEventAssignsEntryID(t *testing.T) {
	db := testDB(t)

	a := &Entry{Category: CategorySignal, Name: "typing"}
	b := &Entry{Category: CategorySignal, Name: "typing"}
	if err := db.AppendEvent(a); err != nil {
		t.Fatal(err)
	}
	if err := db.AppendEvent(b); err != nil {
		t.Fatal(err)
	}
	if a.EntryID == "" || a.EntryID == b.EntryID {
		t.Errorf("entry ids %q and %q should be distinct and non-empty", a.EntryID, b.EntryID)
	}
	if a.ID == 0 || b.ID <= a.ID {
		t.Errorf("row ids = %d, %d", a.ID, b.ID)
	}
}

func TestListEventsPaginationAndFilter(t *testing.T) {
	db := testDB(t)

	for i, cat := range []string{CategoryInbound, CategorySignal, CategoryInbound, CategoryAttempt, CategoryInbound} {
		e := &Entry{Category: cat, Name: "n", CreatedAt: int64(1000 + i)}
		if err := db.AppendEvent(e); err != nil {
			t.Fatal(err)
		}
	}

	page1, err := db.ListEvents(CategoryInbound, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 2 || page1[0].ID <= page1[1].ID {
		t.Fatalf("page1 = %+v", page1)
	}
	page2, err := db.ListEvents(CategoryInbound, page1[1].ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 1 {
		t.Fatalf("page2 has %d entries, want 1", len(page2))
	}

	counts, err := db.CountEvents()
	if err != nil {
		t.Fatal(err)
	}
	if counts[CategoryInbound] != 3 || counts[CategorySignal] != 1 || counts[CategoryAttempt] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestPruneEvents(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	old := &Entry{Category: CategoryInbound, Name: "old", CreatedAt: now.Add(-48 * time.Hour).UnixMilli()}
	fresh := &Entry{Category: CategoryInbound, Name: "fresh", CreatedAt: now.UnixMilli()}
	for _, e := range []*Entry{old, fresh} {
		if err := db.AppendEvent(e); err != nil {
			t.Fatal(err)
		}
	}

	n, err := db.PruneEvents(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	left, _ := db.ListEvents("", 0, 10)
	if len(left) != 1 || left[0].Name != "fresh" {
		t.Errorf("left = %+v", left)
	}
}

func TestTransitions(t *testing.T) {
	db := testDB(t)

	steps := []Transition{
		{From: "DISCONNECTED", To: "CONNECTING"},
		{From: "CONNECTING", To: "RECONNECT_PENDING", AttemptCount: 1, LastError: "refused"},
	}
	for i := range steps {
		if err := db.AppendTransition(&steps[i]); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ListTransitions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2", len(got))
	}
	if got[0].To != "RECONNECT_PENDING" || got[0].AttemptCount != 1 || got[0].LastError != "refused" {
		t.Errorf("newest = %+v", got[0])
	}
}

func TestMemberships(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"c1", "c2", "c1"} {
		if err := db.AddMembership(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.RemoveMembership("c2"); err != nil {
		t.Fatal(err)
	}
	if err := db.RemoveMembership("missing"); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListMemberships()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ConversationID != "c1" {
		t.Errorf("memberships = %+v", got)
	}

	if err := db.ClearMemberships(); err != nil {
		t.Fatal(err)
	}
	got, _ = db.ListMemberships()
	if len(got) != 0 {
		t.Errorf("memberships after clear = %+v", got)
	}
}
