// Package workspace mirrors the library into a directory of plain files so
// chapters can be edited with any text editor, and watches that directory to
// feed edits back into the library.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/automagik-dev/scribe/internal/library"
)

// Mirror exports library content to a workspace directory and maps workspace
// paths back to library records.
type Mirror struct {
	root    string
	library *library.Service
}

// NewMirror creates a mirror rooted at dir.
func NewMirror(dir string, lib *library.Service) (*Mirror, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute workspace path: %w", err)
	}
	return &Mirror{root: abs, library: lib}, nil
}

// Root returns the workspace directory.
func (m *Mirror) Root() string {
	return m.root
}

// BookDir returns the directory holding a book's chapter files.
func (m *Mirror) BookDir(bookName string) string {
	return filepath.Join(m.root, bookName)
}

// ChapterFile returns the workspace path for a chapter.
func (m *Mirror) ChapterFile(bookName, fileName string) string {
	return filepath.Join(m.root, bookName, fileName)
}

// ExportAll writes every book's chapters into the workspace directory,
// overwriting existing files. Files in the workspace with no matching
// library record are left alone.
func (m *Mirror) ExportAll() error {
	books, err := m.library.ListBooks()
	if err != nil {
		return err
	}
	for _, book := range books {
		if err := m.ExportBook(book); err != nil {
			return err
		}
	}
	return nil
}

// ExportBook writes one book's chapters to the workspace.
func (m *Mirror) ExportBook(bookName string) error {
	files, err := m.library.ListChapterFiles(bookName)
	if err != nil {
		return err
	}

	dir := m.BookDir(bookName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create book dir: %w", err)
	}

	for _, fileName := range files {
		content, err := m.library.GetChapterContent(bookName, fileName)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, fileName)
		if err := writeFileAtomic(path, []byte(content)); err != nil {
			return fmt.Errorf("write chapter %s/%s: %w", bookName, fileName, err)
		}
	}
	return nil
}

// Resolve maps a path relative to the workspace root onto a book and chapter
// file. Returns ok=false for paths that are not chapter files (the root
// itself, book directories, nested paths).
func (m *Mirror) Resolve(relPath string) (bookName, fileName string, ok bool) {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Import reads a workspace file and saves it as chapter content. The book
// must already exist; stray directories in the workspace do not create books.
func (m *Mirror) Import(bookName, fileName string) error {
	data, err := os.ReadFile(m.ChapterFile(bookName, fileName))
	if err != nil {
		return fmt.Errorf("read workspace file: %w", err)
	}
	return m.library.SaveChapterContent(bookName, fileName, string(data))
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
