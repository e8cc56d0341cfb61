// Package localstore is the SQLite-backed local state that the reference
// domain adapters read (push source) and overwrite (pull target).
//
// The engine treats the local store as already-written truth: the UI
// mutates it before anything is enqueued, and a pull replaces a domain's
// rows wholesale with the remote's authoritative state.
package localstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS watchlist (
	user_id     TEXT NOT NULL,
	external_id TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	media_type  TEXT NOT NULL DEFAULT 'movie',
	poster_url  TEXT NOT NULL DEFAULT '',
	added_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, external_id)
);

CREATE TABLE IF NOT EXISTS watch_progress (
	user_id       TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	season        INTEGER NOT NULL DEFAULT 0,
	episode       INTEGER NOT NULL DEFAULT 0,
	position_secs REAL NOT NULL DEFAULT 0,
	duration_secs REAL NOT NULL DEFAULT 0,
	watched       INTEGER NOT NULL DEFAULT 0,
	updated_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, external_id, season, episode)
);

CREATE TABLE IF NOT EXISTS preferences (
	user_id    TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, key)
);
`

// Store wraps the SQLite database holding local watch data.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the local database at path. The path
// can be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping local store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY under concurrent adapter rounds.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
