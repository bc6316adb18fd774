package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"etymondl/pkg/words"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := Init(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return db
}

func TestInitIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	// A second opener racing on table creation must not fail.
	if err := Init(db); err != nil {
		t.Fatalf("second init: %v", err)
	}
	var name string
	if err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='words'").Scan(&name); err != nil {
		t.Fatalf("words table missing: %v", err)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := CountWords(db); err != nil {
		t.Fatalf("count on fresh store: %v", err)
	}
}

func TestInsertEntriesDedup(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := []words.Entry{
		{Name: "run", Content: "To move swiftly.", POS: "v, n"},
		{Name: "run", Content: "To move swiftly.", POS: "v, n"},
		{Name: "rune", Content: "A letter.", POS: "n"},
	}
	n, err := InsertEntries(db, batch)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	// The whole batch again: every row is a duplicate now.
	n, err = InsertEntries(db, batch)
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 inserted on reinsert, got %d", n)
	}

	count, err := CountWords(db)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestInsertEntriesNullPOS(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	e := words.Entry{Name: "quiz", Content: "A test."}
	if _, err := InsertEntries(db, []words.Entry{e, e}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Entries without a part-of-speech are stored as NULL and still
	// deduplicate.
	if _, err := InsertEntries(db, []words.Entry{e}); err != nil {
		t.Fatalf("reinsert: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM words WHERE name = 'quiz' AND pos IS NULL`).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 NULL-pos row, got %d", count)
	}
}

func TestInsertEntriesDistinctPOSKeptApart(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := []words.Entry{
		{Name: "run", Content: "To move swiftly.", POS: "v"},
		{Name: "run", Content: "To move swiftly.", POS: "n"},
		{Name: "run", Content: "To move swiftly."},
	}
	n, err := InsertEntries(db, batch)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 inserted, got %d", n)
	}
}

func TestConcurrentProducers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := []words.Entry{
		{Name: "quiz", Content: "A test."},
		{Name: "rune", Content: "A letter.", POS: "n"},
	}
	const producers = 8
	errs := make(chan error, producers)
	for i := 0; i < producers; i++ {
		go func() {
			_, err := InsertEntries(db, batch)
			errs <- err
		}()
	}
	for i := 0; i < producers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("producer error: %v", err)
		}
	}

	count, err := CountWords(db)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(batch) {
		t.Fatalf("expected %d rows regardless of interleaving, got %d", len(batch), count)
	}
}

func TestIsUniqueConstraintErr(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	if _, err := db.Exec(`INSERT INTO words (name, content, pos) VALUES ('a', 'b', 'c')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := db.Exec(`INSERT INTO words (name, content, pos) VALUES ('a', 'b', 'c')`)
	if err == nil {
		t.Fatalf("expected constraint violation")
	}
	if !isUniqueConstraintErr(err) {
		t.Fatalf("expected unique-constraint classification for %v", err)
	}
}
