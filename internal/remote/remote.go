// Package remote adapts a folder-oriented remote file API (Google Drive)
// to the logical paths used by the sync layer.
package remote

import (
	"context"
	"errors"
)

// Failure classes the sync layer distinguishes. Adapter methods wrap every
// failure in exactly one of these.
var (
	// ErrAuthExpired means the stored credential was rejected; the current
	// sync cycle must abort until the user re-authenticates.
	ErrAuthExpired = errors.New("auth expired")
	// ErrNetwork covers transient transport failures, including timeouts.
	ErrNetwork = errors.New("network error")
	// ErrRemoteNotFound means the requested path does not exist remotely.
	ErrRemoteNotFound = errors.New("remote not found")
)

// Store is the folder/file remote consumed by the sync orchestrator.
// Implementations must make Upsert idempotent: two calls for the same path
// yield one remote file, not two.
type Store interface {
	// Upsert creates the file at path if absent, otherwise overwrites its
	// content. Returns the remote file ID.
	Upsert(ctx context.Context, path string, content []byte) (string, error)
	// Read returns the file content, or ErrRemoteNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// List returns the names of a folder's children, or ErrRemoteNotFound
	// if the folder itself does not exist.
	List(ctx context.Context, folderPath string) ([]string, error)
	// Delete removes the file at path. Deleting an absent file is not an error.
	Delete(ctx context.Context, path string) error
}

// Logical path layout of the synced library. The book config and its
// chapter files live side by side under the book's folder.

const (
	// BooksFolder is the top-level folder holding one subfolder per book.
	BooksFolder = "books"
	// BookConfigFile is the per-book config file name.
	BookConfigFile = "config.json"
)

// BookFolder returns the folder path for a book.
func BookFolder(name string) string {
	return BooksFolder + "/" + name
}

// BookConfigPath returns the path of a book's config file.
func BookConfigPath(name string) string {
	return BookFolder(name) + "/" + BookConfigFile
}

// ChapterPath returns the path of a chapter file.
func ChapterPath(bookName, fileName string) string {
	return BookFolder(bookName) + "/" + fileName
}
