package store

import (
	"database/sql"
	"time"
)

// bookFolderPrefix is the remote folder prefix shared by every file that
// belongs to a book. Must line up with the remote adapter's path scheme.
func bookFolderPrefix(name string) string {
	return "books/" + name + "/"
}

// GetChapter retrieves a chapter by its composite key. Returns nil if absent.
func (d *DB) GetChapter(bookName, fileName string) (*ChapterRecord, error) {
	var rec ChapterRecord
	err := d.db.QueryRow(
		`SELECT book_name, file_name, content, last_modified, sync_state
		 FROM chapters WHERE book_name = ? AND file_name = ?`,
		bookName, fileName,
	).Scan(&rec.BookName, &rec.FileName, &rec.Content, &rec.LastModified, &rec.SyncState)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query chapter", err)
	}
	return &rec, nil
}

// PutChapter upserts a chapter, stamping last_modified and marking it
// pending for the next push.
func (d *DB) PutChapter(bookName, fileName, content string) error {
	return d.writeChapter(bookName, fileName, content, time.Now(), StatePending)
}

// ApplyRemoteChapter upserts a chapter with remote content and marks it
// synced. Used by the pull path where the remote copy wins.
func (d *DB) ApplyRemoteChapter(bookName, fileName, content string, modified time.Time) error {
	return d.writeChapter(bookName, fileName, content, modified, StateSynced)
}

func (d *DB) writeChapter(bookName, fileName, content string, modified time.Time, state SyncState) error {
	_, err := d.db.Exec(
		`INSERT INTO chapters (book_name, file_name, content, last_modified, sync_state)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(book_name, file_name) DO UPDATE SET
		   content = excluded.content,
		   last_modified = excluded.last_modified,
		   sync_state = excluded.sync_state`,
		bookName, fileName, content, modified, state,
	)
	if err != nil {
		return storageErr("upsert chapter", err)
	}
	return nil
}

// MarkChapterSynced flips a chapter record to synced.
func (d *DB) MarkChapterSynced(bookName, fileName string) error {
	return d.setChapterState(bookName, fileName, StateSynced)
}

// MarkChapterConflict tags a chapter whose local and remote copies both changed.
func (d *DB) MarkChapterConflict(bookName, fileName string) error {
	return d.setChapterState(bookName, fileName, StateConflict)
}

func (d *DB) setChapterState(bookName, fileName string, state SyncState) error {
	_, err := d.db.Exec(
		`UPDATE chapters SET sync_state = ? WHERE book_name = ? AND file_name = ?`,
		state, bookName, fileName,
	)
	if err != nil {
		return storageErr("update chapter state", err)
	}
	return nil
}

// DeleteChapter removes a single chapter record and its sync metadata.
func (d *DB) DeleteChapter(bookName, fileName string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return storageErr("begin delete chapter", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM chapters WHERE book_name = ? AND file_name = ?`,
		bookName, fileName,
	); err != nil {
		return storageErr("delete chapter", err)
	}
	if _, err := tx.Exec(`DELETE FROM sync_metadata WHERE remote_path = ?`,
		bookFolderPrefix(bookName)+fileName); err != nil {
		return storageErr("delete sync metadata", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit delete chapter", err)
	}
	return nil
}

// ListChaptersByBook returns all chapter records for a book, ordered by file name.
func (d *DB) ListChaptersByBook(bookName string) ([]ChapterRecord, error) {
	rows, err := d.db.Query(
		`SELECT book_name, file_name, content, last_modified, sync_state
		 FROM chapters WHERE book_name = ? ORDER BY file_name`,
		bookName,
	)
	if err != nil {
		return nil, storageErr("query chapters", err)
	}
	defer rows.Close()

	var chapters []ChapterRecord
	for rows.Next() {
		var rec ChapterRecord
		if err := rows.Scan(&rec.BookName, &rec.FileName, &rec.Content,
			&rec.LastModified, &rec.SyncState); err != nil {
			return nil, storageErr("scan chapter", err)
		}
		chapters = append(chapters, rec)
	}
	return chapters, rows.Err()
}

// ListPending returns every record currently awaiting a push.
func (d *DB) ListPending() (*PendingSet, error) {
	pending := &PendingSet{}

	rows, err := d.db.Query(`SELECT name FROM books WHERE sync_state = ? ORDER BY name`, StatePending)
	if err != nil {
		return nil, storageErr("query pending books", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("scan pending book", err)
		}
		pending.Books = append(pending.Books, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate pending books", err)
	}

	chRows, err := d.db.Query(
		`SELECT book_name, file_name FROM chapters WHERE sync_state = ?
		 ORDER BY book_name, file_name`, StatePending)
	if err != nil {
		return nil, storageErr("query pending chapters", err)
	}
	defer chRows.Close()
	for chRows.Next() {
		var key ChapterKey
		if err := chRows.Scan(&key.BookName, &key.FileName); err != nil {
			return nil, storageErr("scan pending chapter", err)
		}
		pending.Chapters = append(pending.Chapters, key)
	}
	return pending, chRows.Err()
}

// CompleteChapterPush marks a chapter synced and records its sync metadata
// in one transaction. The flip is guarded on last_modified: a save that
// landed while the push was in flight leaves the record pending so the next
// cycle re-pushes it.
func (d *DB) CompleteChapterPush(bookName, fileName, remotePath, remoteFileID string, localModified time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return storageErr("begin complete push", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE chapters SET sync_state = ? WHERE book_name = ? AND file_name = ? AND last_modified = ?`,
		StateSynced, bookName, fileName, localModified,
	); err != nil {
		return storageErr("mark chapter synced", err)
	}
	if err := upsertSyncMetadataTx(tx, remotePath, remoteFileID, localModified); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit complete push", err)
	}
	return nil
}
