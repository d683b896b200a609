package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/automagik-dev/scribe/internal/library"
	"github.com/automagik-dev/scribe/internal/store"
)

func newTestMirror(t *testing.T) (*Mirror, *library.Service) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	lib := library.New(db, nil)
	m, err := NewMirror(t.TempDir(), lib)
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}
	return m, lib
}

func TestExportAll(t *testing.T) {
	m, lib := newTestMirror(t)

	if err := lib.CreateBook("drafts"); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if err := lib.SaveChapterContent("drafts", "ch1.md", "# One"); err != nil {
		t.Fatalf("SaveChapterContent: %v", err)
	}
	if err := lib.SaveChapterContent("drafts", "ch2.md", "# Two"); err != nil {
		t.Fatalf("SaveChapterContent: %v", err)
	}

	if err := m.ExportAll(); err != nil {
		t.Fatalf("ExportAll: %v", err)
	}

	b, err := os.ReadFile(m.ChapterFile("drafts", "ch1.md"))
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if string(b) != "# One" {
		t.Errorf("content = %q", b)
	}

	entries, err := os.ReadDir(m.BookDir("drafts"))
	if err != nil {
		t.Fatalf("read book dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("exported %d files, want 2", len(entries))
	}
}

func TestResolve(t *testing.T) {
	m, _ := newTestMirror(t)

	book, file, ok := m.Resolve(filepath.Join("drafts", "ch1.md"))
	if !ok || book != "drafts" || file != "ch1.md" {
		t.Errorf("Resolve = %q %q %v", book, file, ok)
	}

	for _, rel := range []string{"drafts", ".", filepath.Join("a", "b", "c.md")} {
		if _, _, ok := m.Resolve(rel); ok {
			t.Errorf("Resolve(%q) should not match", rel)
		}
	}
}

func TestImport_SavesEditBack(t *testing.T) {
	m, lib := newTestMirror(t)

	if err := lib.CreateBook("drafts"); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if err := lib.SaveChapterContent("drafts", "ch1.md", "old"); err != nil {
		t.Fatalf("SaveChapterContent: %v", err)
	}
	if err := m.ExportAll(); err != nil {
		t.Fatalf("ExportAll: %v", err)
	}

	if err := os.WriteFile(m.ChapterFile("drafts", "ch1.md"), []byte("edited"), 0o644); err != nil {
		t.Fatalf("write edit: %v", err)
	}
	if err := m.Import("drafts", "ch1.md"); err != nil {
		t.Fatalf("Import: %v", err)
	}

	content, err := lib.GetChapterContent("drafts", "ch1.md")
	if err != nil {
		t.Fatalf("GetChapterContent: %v", err)
	}
	if content != "edited" {
		t.Errorf("content = %q, want edited", content)
	}
}

func TestShouldIgnore(t *testing.T) {
	cases := map[string]bool{
		"/ws/drafts/ch1.md":     false,
		"/ws/drafts/ch1.md~":    true,
		"/ws/drafts/.ch1.swp":   true,
		"/ws/drafts/ch1.md.tmp": true,
		"/ws/.git":              true,
	}
	for path, want := range cases {
		if got := shouldIgnore(path); got != want {
			t.Errorf("shouldIgnore(%q) = %v, want %v", path, got, want)
		}
	}
}
