// Package store provides durable local storage for books, chapters, and
// sync bookkeeping records on SQLite.
package store

import (
	"time"
)

// SyncState tags a record with its relationship to the remote store.
type SyncState string

const (
	// StateSynced means local and remote content were equal at the last sync.
	StateSynced SyncState = "synced"
	// StatePending means local content has not been confirmed written remotely.
	StatePending SyncState = "pending"
	// StateConflict means both local and remote changed since the last sync.
	StateConflict SyncState = "conflict"
)

// Idea is a single idea note attached to a chapter.
type Idea struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// BookConfig holds the chapter list, the chapter order, and the idea notes
// keyed by chapter file name.
type BookConfig struct {
	Chapters     []string          `json:"chapters"`
	ChapterOrder []string          `json:"chapter_order"`
	Ideas        map[string][]Idea `json:"ideas,omitempty"`
}

// BookRecord is a locally stored book. Name is the unique key.
type BookRecord struct {
	Name         string     `json:"name"`
	Config       BookConfig `json:"config"`
	LastModified time.Time  `json:"last_modified"`
	SyncState    SyncState  `json:"sync_state"`
}

// ChapterRecord is a locally stored chapter, keyed by (book name, file name).
type ChapterRecord struct {
	BookName     string    `json:"book_name"`
	FileName     string    `json:"file_name"`
	Content      string    `json:"content"`
	LastModified time.Time `json:"last_modified"`
	SyncState    SyncState `json:"sync_state"`
}

// SyncMetadata links a local entity to its remote identity. It exists only
// after the entity has completed at least one successful sync; its absence
// means "never synced" and the entity must be created remotely.
type SyncMetadata struct {
	RemotePath         string    `json:"remote_path"`
	RemoteFileID       string    `json:"remote_file_id"`
	LastSyncTime       time.Time `json:"last_sync_time"`
	LocalLastModified  time.Time `json:"local_last_modified"`
	RemoteLastModified time.Time `json:"remote_last_modified"`
}

// ChapterKey identifies a chapter in the pending set.
type ChapterKey struct {
	BookName string `json:"book_name"`
	FileName string `json:"file_name"`
}

// PendingSet lists every record awaiting a push.
type PendingSet struct {
	Books    []string     `json:"books"`
	Chapters []ChapterKey `json:"chapters"`
}

// Empty reports whether nothing is pending.
func (p *PendingSet) Empty() bool {
	return p == nil || (len(p.Books) == 0 && len(p.Chapters) == 0)
}

// LogEntry is a row in the sync log.
type LogEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"` // upload, download, conflict, error
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"` // JSON details
}
