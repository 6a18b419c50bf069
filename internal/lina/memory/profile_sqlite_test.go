package memory

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database with the user_profiles
// table and returns the DB handle. The caller should defer db.Close().
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE user_profiles (
			user_id TEXT PRIMARY KEY,
			name_hint TEXT NOT NULL DEFAULT '',
			topics TEXT,
			notes TEXT NOT NULL DEFAULT '',
			interactions INTEGER NOT NULL DEFAULT 0,
			last_seen TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		db.Close()
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestSQLiteProfileStore_SatisfiesInterface(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	var store ProfileStore = NewSQLiteProfileStore(db, nil)
	if store == nil {
		t.Fatal("expected non-nil ProfileStore")
	}
}

func TestSQLiteProfileStore_UnseenUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewSQLiteProfileStore(db, nil)
	p, err := store.Get(context.Background(), "@ghost:test")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !p.IsEmpty() || p.Interactions != 0 {
		t.Errorf("unseen profile not zero-valued: %+v", p)
	}

	// The default must not have been written back.
	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Get persisted a default profile: count = %d, want 0", n)
	}
}

func TestSQLiteProfileStore_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewSQLiteProfileStore(db, nil)
	ctx := context.Background()

	in := &Profile{
		NameHint:     "alice",
		Topics:       []string{"uni stress", "new cat"},
		Notes:        "ich bin student in köln",
		Interactions: 7,
		LastSeen:     "2026-03-01T12:00:00Z",
	}
	if err := store.Upsert(ctx, "@alice:test", in); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	out, err := store.Get(ctx, "@alice:test")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out.NameHint != in.NameHint || out.Notes != in.Notes ||
		out.Interactions != in.Interactions || out.LastSeen != in.LastSeen {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
	if len(out.Topics) != 2 || out.Topics[0] != "uni stress" || out.Topics[1] != "new cat" {
		t.Errorf("topics lost order: %v", out.Topics)
	}
}

func TestSQLiteProfileStore_UpsertIsIdempotentReplace(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewSQLiteProfileStore(db, nil)
	ctx := context.Background()

	p := &Profile{NameHint: "bob", Topics: []string{"coffee"}, Interactions: 1}
	if err := store.Upsert(ctx, "@bob:test", p); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, "@bob:test", p); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	n, _ := store.Count(ctx)
	if n != 1 {
		t.Errorf("count = %d after double upsert, want 1", n)
	}

	out, _ := store.Get(ctx, "@bob:test")
	if len(out.Topics) != 1 {
		t.Errorf("topics duplicated on re-upsert: %v", out.Topics)
	}
}

func TestSQLiteProfileStore_MalformedTopicsDegrade(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.Exec(`
		INSERT INTO user_profiles (user_id, name_hint, topics, notes, interactions, last_seen)
		VALUES ('@carol:test', 'carol', 'not-json', '', 2, '')`)
	if err != nil {
		t.Fatalf("seed row: %v", err)
	}

	store := NewSQLiteProfileStore(db, nil)
	p, err := store.Get(context.Background(), "@carol:test")
	if err != nil {
		t.Fatalf("Get should tolerate malformed topics, got: %v", err)
	}
	if p.NameHint != "carol" || p.Interactions != 2 {
		t.Errorf("row fields lost: %+v", p)
	}
	if len(p.Topics) != 0 {
		t.Errorf("malformed topics should be dropped, got %v", p.Topics)
	}
}
