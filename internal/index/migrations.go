package index

import (
	"database/sql"
	"fmt"
)

// migrations[i] upgrades the schema from version i to version i+1. The
// applied version lives in SQLite's user_version pragma and is bumped in
// the same transaction as the step itself.
var migrations = []func(tx *sql.Tx) error{
	createEntriesAndRuns,
}

// Migrate applies every migration the database has not seen yet.
func (db *DB) Migrate() error {
	version, err := db.schemaVersion()
	if err != nil {
		return err
	}
	if version > len(migrations) {
		return fmt.Errorf("index schema version %d is newer than supported version %d", version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		if err := db.applyMigration(v+1, migrations[v]); err != nil {
			return fmt.Errorf("migration v%d: %w", v+1, err)
		}
	}
	return nil
}

func (db *DB) schemaVersion() (int, error) {
	var version int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (db *DB) applyMigration(version int, step func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := step(tx); err != nil {
		return err
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

func createEntriesAndRuns(tx *sql.Tx) error {
	for _, stmt := range []string{
		`CREATE TABLE entries (
			library TEXT NOT NULL,
			path    TEXT NOT NULL,
			fields  TEXT NOT NULL,
			PRIMARY KEY (library, path)
		)`,
		`CREATE TABLE runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			library     TEXT NOT NULL,
			started_at  TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			files       INTEGER NOT NULL,
			entries     INTEGER NOT NULL,
			problems    INTEGER NOT NULL,
			dangling    INTEGER NOT NULL
		)`,
		`CREATE INDEX idx_runs_library ON runs(library)`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
