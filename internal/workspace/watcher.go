package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the workspace directory and saves edited chapter files
// back into the library. Events for the same path are debounced so an editor
// writing in several bursts produces one save.
type Watcher struct {
	mirror   *Mirror
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher over the mirror's workspace directory. The
// directory and its book subdirectories are registered up front; directories
// created later are picked up from create events.
func NewWatcher(m *Mirror, logger *slog.Logger, debounce time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		mirror:   m,
		watcher:  fsw,
		logger:   logger,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
	}

	if err := w.addRecursive(m.Root()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch workspace: %w", err)
	}
	return w, nil
}

// Start processes events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("workspace watch error", "error", err)
		}
	}
}

// Stop cancels pending saves and closes the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if shouldIgnore(path) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addRecursive(path); err != nil {
				w.logger.Warn("watch new directory failed", "path", path, "error", err)
			}
			return
		}
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	rel, err := filepath.Rel(w.mirror.Root(), path)
	if err != nil {
		return
	}
	book, file, ok := w.mirror.Resolve(rel)
	if !ok {
		return
	}

	w.scheduleSave(path, book, file)
}

// scheduleSave arms (or re-arms) the debounce timer for one chapter file.
func (w *Watcher) scheduleSave(path, book, file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if err := w.mirror.Import(book, file); err != nil {
			w.logger.Warn("save edited chapter failed",
				"book", book, "chapter", file, "error", err)
			return
		}
		w.logger.Debug("saved edited chapter", "book", book, "chapter", file)
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("add watch for %s: %w", path, err)
		}
		return nil
	})
}

// shouldIgnore filters editor temp files and hidden paths.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".swp") {
		return true
	}
	if strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}
	return false
}
