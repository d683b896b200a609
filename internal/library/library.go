// Package library exposes book and chapter operations to the UI layer.
// Every mutation writes to the local store, which marks the record pending,
// then signals the sync queue without blocking the caller.
package library

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/automagik-dev/scribe/internal/store"
)

var (
	// ErrBookNotFound is returned for operations on an unknown book.
	ErrBookNotFound = errors.New("book not found")
	// ErrChapterNotFound is returned for operations on an unknown chapter.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrBookExists is returned when creating a book whose name is taken.
	ErrBookExists = errors.New("book already exists")
)

// Notifier receives a signal after each mutation. The sync orchestrator's
// NotifyChange satisfies it.
type Notifier interface {
	NotifyChange()
}

// Service is the UI-facing library API.
type Service struct {
	store    *store.DB
	notifier Notifier
}

// New creates a library service. notifier may be nil when sync is disabled.
func New(db *store.DB, notifier Notifier) *Service {
	return &Service{store: db, notifier: notifier}
}

func (s *Service) notify() {
	if s.notifier != nil {
		s.notifier.NotifyChange()
	}
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("empty name")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name must not contain path separators: %q", name)
	}
	return nil
}

// ListBooks returns all book names.
func (s *Service) ListBooks() ([]string, error) {
	return s.store.ListBooks()
}

// CreateBook creates an empty book. The name must be unique.
func (s *Service) CreateBook(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	existing, err := s.store.GetBook(name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%q: %w", name, ErrBookExists)
	}

	if err := s.store.PutBook(name, store.BookConfig{}); err != nil {
		return err
	}
	s.notify()
	return nil
}

// DeleteBook removes a book and all of its chapters.
func (s *Service) DeleteBook(name string) error {
	existing, err := s.store.GetBook(name)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%q: %w", name, ErrBookNotFound)
	}

	if err := s.store.DeleteBook(name); err != nil {
		return err
	}
	s.notify()
	return nil
}

// GetBookConfig returns a book's config.
func (s *Service) GetBookConfig(name string) (*store.BookConfig, error) {
	rec, err := s.store.GetBook(name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrBookNotFound)
	}
	return &rec.Config, nil
}

// SaveBookConfig overwrites a book's config and marks the book pending.
func (s *Service) SaveBookConfig(name string, cfg store.BookConfig) error {
	existing, err := s.store.GetBook(name)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%q: %w", name, ErrBookNotFound)
	}

	if err := s.store.PutBook(name, cfg); err != nil {
		return err
	}
	s.notify()
	return nil
}

// GetChapterContent returns a chapter's content.
func (s *Service) GetChapterContent(bookName, fileName string) (string, error) {
	rec, err := s.store.GetChapter(bookName, fileName)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", fmt.Errorf("%s/%s: %w", bookName, fileName, ErrChapterNotFound)
	}
	return rec.Content, nil
}

// SaveChapterContent upserts a chapter's content. A new chapter is also
// registered in the book's config (chapter list and order).
func (s *Service) SaveChapterContent(bookName, fileName, content string) error {
	if err := validateName(fileName); err != nil {
		return err
	}

	book, err := s.store.GetBook(bookName)
	if err != nil {
		return err
	}
	if book == nil {
		return fmt.Errorf("%q: %w", bookName, ErrBookNotFound)
	}

	if err := s.store.PutChapter(bookName, fileName, content); err != nil {
		return err
	}

	if !slices.Contains(book.Config.Chapters, fileName) {
		cfg := book.Config
		cfg.Chapters = append(cfg.Chapters, fileName)
		cfg.ChapterOrder = append(cfg.ChapterOrder, fileName)
		if err := s.store.PutBook(bookName, cfg); err != nil {
			return err
		}
	}

	s.notify()
	return nil
}

// DeleteChapterContent removes a chapter and deregisters it from the book
// config.
func (s *Service) DeleteChapterContent(bookName, fileName string) error {
	rec, err := s.store.GetChapter(bookName, fileName)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%s/%s: %w", bookName, fileName, ErrChapterNotFound)
	}

	if err := s.store.DeleteChapter(bookName, fileName); err != nil {
		return err
	}

	book, err := s.store.GetBook(bookName)
	if err != nil {
		return err
	}
	if book != nil {
		cfg := book.Config
		cfg.Chapters = slices.DeleteFunc(cfg.Chapters, func(n string) bool { return n == fileName })
		cfg.ChapterOrder = slices.DeleteFunc(cfg.ChapterOrder, func(n string) bool { return n == fileName })
		if cfg.Ideas != nil {
			delete(cfg.Ideas, fileName)
		}
		if err := s.store.PutBook(bookName, cfg); err != nil {
			return err
		}
	}

	s.notify()
	return nil
}

// ListChapterFiles returns the chapter file names for a book, in the order
// recorded in the book config; chapters missing from the order sort last.
func (s *Service) ListChapterFiles(bookName string) ([]string, error) {
	book, err := s.store.GetBook(bookName)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("%q: %w", bookName, ErrBookNotFound)
	}

	chapters, err := s.store.ListChaptersByBook(bookName)
	if err != nil {
		return nil, err
	}

	rank := make(map[string]int, len(book.Config.ChapterOrder))
	for i, n := range book.Config.ChapterOrder {
		rank[n] = i
	}

	names := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		names = append(names, ch.FileName)
	}
	slices.SortStableFunc(names, func(a, b string) int {
		ra, aok := rank[a]
		rb, bok := rank[b]
		switch {
		case aok && bok:
			return ra - rb
		case aok:
			return -1
		case bok:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
	return names, nil
}

// AddIdea appends an idea note to a chapter of a book.
func (s *Service) AddIdea(bookName, chapterFile, text string) (store.Idea, error) {
	book, err := s.store.GetBook(bookName)
	if err != nil {
		return store.Idea{}, err
	}
	if book == nil {
		return store.Idea{}, fmt.Errorf("%q: %w", bookName, ErrBookNotFound)
	}

	idea := store.Idea{
		ID:        newIdeaID(),
		Text:      text,
		CreatedAt: time.Now(),
	}

	cfg := book.Config
	if cfg.Ideas == nil {
		cfg.Ideas = make(map[string][]store.Idea)
	}
	cfg.Ideas[chapterFile] = append(cfg.Ideas[chapterFile], idea)

	if err := s.store.PutBook(bookName, cfg); err != nil {
		return store.Idea{}, err
	}
	s.notify()
	return idea, nil
}

// ListIdeas returns the idea notes for a chapter, in insertion order.
func (s *Service) ListIdeas(bookName, chapterFile string) ([]store.Idea, error) {
	cfg, err := s.GetBookConfig(bookName)
	if err != nil {
		return nil, err
	}
	return cfg.Ideas[chapterFile], nil
}

func newIdeaID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
