package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// GetBook retrieves a book record by name. Returns nil if absent.
func (d *DB) GetBook(name string) (*BookRecord, error) {
	var rec BookRecord
	var configJSON string
	err := d.db.QueryRow(
		`SELECT name, config, last_modified, sync_state FROM books WHERE name = ?`,
		name,
	).Scan(&rec.Name, &configJSON, &rec.LastModified, &rec.SyncState)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query book", err)
	}

	if err := json.Unmarshal([]byte(configJSON), &rec.Config); err != nil {
		return nil, fmt.Errorf("decode book config %q: %w", name, err)
	}
	return &rec, nil
}

// PutBook upserts a book record, stamping last_modified and marking it
// pending for the next push.
func (d *DB) PutBook(name string, cfg BookConfig) error {
	return d.writeBook(name, cfg, time.Now(), StatePending)
}

// ApplyRemoteBook upserts a book with remote content and marks it synced.
// Used by the pull path where the remote copy wins.
func (d *DB) ApplyRemoteBook(name string, cfg BookConfig, modified time.Time) error {
	return d.writeBook(name, cfg, modified, StateSynced)
}

func (d *DB) writeBook(name string, cfg BookConfig, modified time.Time, state SyncState) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode book config %q: %w", name, err)
	}

	_, err = d.db.Exec(
		`INSERT INTO books (name, config, last_modified, sync_state)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   config = excluded.config,
		   last_modified = excluded.last_modified,
		   sync_state = excluded.sync_state`,
		name, string(configJSON), modified, state,
	)
	if err != nil {
		return storageErr("upsert book", err)
	}
	return nil
}

// MarkBookSynced flips a book record to synced without touching content.
func (d *DB) MarkBookSynced(name string) error {
	return d.setBookState(name, StateSynced)
}

// MarkBookConflict tags a book whose local and remote copies both changed.
func (d *DB) MarkBookConflict(name string) error {
	return d.setBookState(name, StateConflict)
}

func (d *DB) setBookState(name string, state SyncState) error {
	_, err := d.db.Exec(`UPDATE books SET sync_state = ? WHERE name = ?`, state, name)
	if err != nil {
		return storageErr("update book state", err)
	}
	return nil
}

// ListBooks returns all book names in lexical order.
func (d *DB) ListBooks() ([]string, error) {
	rows, err := d.db.Query(`SELECT name FROM books ORDER BY name`)
	if err != nil {
		return nil, storageErr("query books", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("scan book name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteBook removes a book and all of its chapters in one transaction so a
// crash cannot leave orphaned chapter records. Sync metadata for the book's
// remote files is removed as well.
func (d *DB) DeleteBook(name string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return storageErr("begin delete book", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chapters WHERE book_name = ?`, name); err != nil {
		return storageErr("delete chapters", err)
	}
	if _, err := tx.Exec(`DELETE FROM books WHERE name = ?`, name); err != nil {
		return storageErr("delete book", err)
	}
	if _, err := tx.Exec(`DELETE FROM sync_metadata WHERE remote_path LIKE ?`,
		bookFolderPrefix(name)+"%"); err != nil {
		return storageErr("delete sync metadata", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit delete book", err)
	}
	return nil
}

// CompleteBookPush marks a book synced and records its sync metadata in one
// transaction, tying the local state flip to the remote operation's outcome.
// The flip is guarded on last_modified: a save that landed while the push was
// in flight leaves the record pending so the next cycle re-pushes it.
func (d *DB) CompleteBookPush(name, remotePath, remoteFileID string, localModified time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return storageErr("begin complete push", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE books SET sync_state = ? WHERE name = ? AND last_modified = ?`,
		StateSynced, name, localModified); err != nil {
		return storageErr("mark book synced", err)
	}
	if err := upsertSyncMetadataTx(tx, remotePath, remoteFileID, localModified); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit complete push", err)
	}
	return nil
}
