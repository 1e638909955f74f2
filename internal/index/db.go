// Package index persists scanned listings in SQLite so lookups do not need
// to re-read meta files.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metapath/metapath/internal/metadata"
	"github.com/metapath/metapath/internal/pathnorm"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection holding the index.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the index at dbPath, creating its directory.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return open(conn)
}

// OpenInMemory opens a private in-memory index, useful for tests.
func OpenInMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" is a separate database.
	conn.SetMaxOpenConns(1)
	return open(conn)
}

func open(conn *sql.DB) (*DB, error) {
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = conn.Close()
		return nil, err
	}
	db := &DB{conn: conn}
	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// ReplaceLibrary swaps the stored entries of library for listing in one
// transaction. Listing keys are normalized before they are stored.
func (db *DB) ReplaceLibrary(ctx context.Context, library string, listing metadata.Listing) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE library = ?", library); err != nil {
		return fmt.Errorf("clear library %s: %w", library, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO entries (library, path, fields) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, path := range listing.Paths() {
		fields, err := json.Marshal(listing[path])
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		if _, err := stmt.ExecContext(ctx, library, normalizeKey(path), string(fields)); err != nil {
			return fmt.Errorf("insert %s: %w", path, err)
		}
	}

	return tx.Commit()
}

// Lookup returns the metadata stored for path. The path is normalized
// first, so any spelling of it finds the same entry.
func (db *DB) Lookup(ctx context.Context, library, path string) (metadata.Metadata, bool, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx,
		"SELECT fields FROM entries WHERE library = ? AND path = ?",
		library, normalizeKey(path),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var meta metadata.Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return meta, true, nil
}

// List returns the stored paths equal to or below prefix, sorted.
func (db *DB) List(ctx context.Context, library, prefix string) ([]string, error) {
	prefix = normalizeKey(prefix)

	var rows *sql.Rows
	var err error
	if prefix == "." {
		rows, err = db.conn.QueryContext(ctx,
			"SELECT path FROM entries WHERE library = ? ORDER BY path", library)
	} else {
		below := prefix + "/"
		rows, err = db.conn.QueryContext(ctx,
			"SELECT path FROM entries WHERE library = ? AND (path = ? OR substr(path, 1, ?) = ?) ORDER BY path",
			library, prefix, len(below), below)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// Count returns the number of entries stored for library.
func (db *DB) Count(ctx context.Context, library string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries WHERE library = ?", library).Scan(&n)
	return n, err
}

func normalizeKey(path string) string {
	return pathnorm.NormalizeStyle(path, pathnorm.Unix)
}
