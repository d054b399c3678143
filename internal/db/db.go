/*
Responsibilities

- Open the project's sqlite database file
- Apply the embedded schema idempotently
- Hand out a single *sql.DB shared by the frontier and persistence layer

This package owns no domain semantics; it is plumbing only.
*/
package db

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// Open opens (creating if necessary) the sqlite database at path and applies
// the embedded schema. Foreign keys and WAL mode are enabled per connection,
// and _busy_timeout makes a writer block (instead of failing immediately
// with SQLITE_BUSY) while another connection in the pool holds the write
// lock — concurrent_requests hands out several connections, and SQLite
// itself only ever allows one writer at a time.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}

	if err := Migrate(database); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}

// Migrate applies the embedded schema. It is idempotent: every statement uses
// CREATE TABLE/INDEX IF NOT EXISTS, so calling Migrate on an already-current
// database is a no-op.
func Migrate(database *sql.DB) error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("db: read embedded schema: %w", err)
	}

	if _, err := database.Exec(string(schema)); err != nil {
		return fmt.Errorf("db: apply schema: %w", err)
	}

	return nil
}
