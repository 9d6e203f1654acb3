// Package sqlite implements the token ledger and state store on an embedded SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS token_balances (
	identity   TEXT PRIMARY KEY,
	balance    INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS token_grants (
	marker     TEXT PRIMARY KEY,
	identity   TEXT NOT NULL,
	amount     INTEGER NOT NULL CHECK (amount > 0),
	granted_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS novel_state (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	snapshot TEXT NOT NULL,
	saved_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS novel_books (
	idx      INTEGER PRIMARY KEY CHECK (idx >= 0),
	snapshot TEXT NOT NULL
);
`

// Open opens the database at path and applies the schema. A single connection
// serialises writers, which is what makes the conditional debit atomic.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
