// Package store persists word entries in SQLite with exact-duplicate
// suppression enforced by a storage-level uniqueness constraint.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"etymondl/pkg/words"
)

// Executor is an interface that allows methods to accept either *sql.DB or *sql.Tx.
type Executor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Open opens the words database at path, creating it and its schema if
// needed. Callers own the returned handle and should use a single one per
// write session.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store %s: %w", path, err)
	}
	return db, nil
}

// Init runs the embedded schema SQL on the given DB connection. It is
// idempotent: a table that already exists (including one created by a
// concurrent opener) is not an error.
func Init(db *sql.DB) error {
	stmts := strings.Split(schemaSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			if isAlreadyExistsErr(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// isAlreadyExistsErr returns true when the error indicates the table was
// created by another opener.
func isAlreadyExistsErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation.
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

const insertEntry = `INSERT INTO words (name, content, pos) VALUES (?, ?, ?)`

// InsertEntries attempts to insert each entry and returns how many rows were
// actually added. A uniqueness violation means the exact (name, content, pos)
// triple is already present; it is discarded and the rest of the batch still
// inserts. Every other failure aborts the batch.
func InsertEntries(exec Executor, entries []words.Entry) (int, error) {
	inserted := 0
	for _, e := range entries {
		pos := sql.NullString{String: e.POS, Valid: e.POS != ""}
		if _, err := exec.Exec(insertEntry, e.Name, e.Content, pos); err != nil {
			if isUniqueConstraintErr(err) {
				continue
			}
			return inserted, fmt.Errorf("insert word %q: %w", e.Name, err)
		}
		inserted++
	}
	return inserted, nil
}

// CountWords returns the number of distinct stored entries.
func CountWords(exec Executor) (int, error) {
	var n int
	if err := exec.QueryRow(`SELECT COUNT(*) FROM words`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count words: %w", err)
	}
	return n, nil
}
