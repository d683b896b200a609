package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/automagik-dev/scribe/internal/config"
)

// ErrStorageUnavailable marks failures of the underlying store. Operations
// that hit it are fatal to the caller and are not retried automatically.
var ErrStorageUnavailable = errors.New("storage unavailable")

// DB is the local record store backed by SQLite.
type DB struct {
	db *sql.DB
}

// DBPath returns the path to the library database file.
func DBPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "library.db"), nil
}

// OpenDefault opens (or creates) the library database in the config dir.
func OpenDefault() (*DB, error) {
	dbPath, err := DBPath()
	if err != nil {
		return nil, fmt.Errorf("get db path: %w", err)
	}
	if _, err := config.EnsureDir(); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	return Open(dbPath)
}

// Open opens (or creates) a library database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, storageErr("open database", err)
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, storageErr("migrate database", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// migrate creates the database schema if it doesn't exist.
func (d *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		name TEXT PRIMARY KEY,
		config TEXT NOT NULL DEFAULT '{}',
		last_modified DATETIME NOT NULL,
		sync_state TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_books_sync_state ON books(sync_state);

	CREATE TABLE IF NOT EXISTS chapters (
		book_name TEXT NOT NULL,
		file_name TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		last_modified DATETIME NOT NULL,
		sync_state TEXT NOT NULL DEFAULT 'pending',
		PRIMARY KEY (book_name, file_name)
	);

	CREATE INDEX IF NOT EXISTS idx_chapters_book_name ON chapters(book_name);
	CREATE INDEX IF NOT EXISTS idx_chapters_sync_state ON chapters(sync_state);

	CREATE TABLE IF NOT EXISTS sync_metadata (
		remote_path TEXT PRIMARY KEY,
		remote_file_id TEXT NOT NULL DEFAULT '',
		last_sync_time DATETIME,
		local_last_modified DATETIME,
		remote_last_modified DATETIME
	);

	CREATE TABLE IF NOT EXISTS app_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		details TEXT DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_sync_log_timestamp ON sync_log(timestamp);
	`

	_, err := d.db.Exec(schema)
	return err
}

// storageErr wraps a low-level database error so callers can match
// ErrStorageUnavailable while keeping the original cause visible.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStorageUnavailable, err))
}

// AddLogEntry appends an entry to the sync log. Best effort: callers
// typically ignore the returned error.
func (d *DB) AddLogEntry(action, path string, details map[string]any) error {
	detailsJSON := "{}"
	if details != nil {
		b, err := json.Marshal(details)
		if err == nil {
			detailsJSON = string(b)
		}
	}

	_, err := d.db.Exec(
		`INSERT INTO sync_log (action, path, timestamp, details)
		 VALUES (?, ?, ?, ?)`,
		action, path, time.Now(), detailsJSON,
	)
	if err != nil {
		return storageErr("insert log entry", err)
	}
	return nil
}

// RecentLogs returns the most recent sync log entries.
func (d *DB) RecentLogs(limit int) ([]LogEntry, error) {
	rows, err := d.db.Query(
		`SELECT id, action, path, timestamp, details
		 FROM sync_log ORDER BY timestamp DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, storageErr("query logs", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var entry LogEntry
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.Path,
			&entry.Timestamp, &entry.Details); err != nil {
			return nil, storageErr("scan log", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
