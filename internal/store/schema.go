// Package store provides SQLite-backed persistence for calendar events,
// keyed on the (subject, start, end) identity triple.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	subject     TEXT NOT NULL,
	start_at    TEXT NOT NULL,
	end_at      TEXT NOT NULL,
	uid         TEXT NOT NULL UNIQUE,
	location    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (subject, start_at, end_at)
);

CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_at);
`

// busy_timeout covers the inbox watcher and an HTTP upload hitting the
// write lock at the same moment.
const dsnOptions = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// DB is the events database handle; the repository methods hang off it.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the events database at path and ensures the
// schema exists.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// sql.Open is lazy; running the schema now surfaces a bad path or a
	// corrupt file here rather than on first use.
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: init %s: %w", path, err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
