package internal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	started_at     TEXT,
	ended_at       TEXT,
	message_count  INTEGER NOT NULL DEFAULT 0,
	has_references INTEGER NOT NULL DEFAULT 0,
	base_url       TEXT,
	archived_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_logs (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	actor      TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  TEXT,
	refs       TEXT,
	PRIMARY KEY (session_id, seq)
);`

// DefaultArchivePath returns ~/.chatdesk/archive.db
func DefaultArchivePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".chatdesk", "archive.db"), nil
}

// OpenDatabase opens the archive database, creating the file and its schema
// when needed. With readOnly set the file must already exist.
func OpenDatabase(path string, readOnly bool) (*sql.DB, error) {
	dsn := path
	if readOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, &StorageError{Path: path, Op: "open", Err: err}
		}
		dsn = "file:" + filepath.ToSlash(path) + "?mode=ro"
	} else if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, &StorageError{Path: path, Op: "mkdir", Err: err}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if !readOnly {
		if err := InitSchema(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// InitSchema creates the archive tables if they are missing
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
