package database

import (
	"database/sql"
	_ "embed"
	"errors"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned by lookups for rows that do not exist.
var ErrNotFound = errors.New("database: not found")

// Store wraps the SQLite handle. SQLite provides the concurrency control;
// the engine relies on the compound-key uniqueness of the tables for
// idempotence rather than application-level locking.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// Single writer. Also keeps :memory: databases on one connection, the
	// pool would otherwise hand out fresh empty ones.
	db.SetMaxOpenConns(1)
	// WAL so scheduled writes don't block facade reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }
