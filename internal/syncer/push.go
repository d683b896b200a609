package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/automagik-dev/scribe/internal/remote"
	"github.com/automagik-dev/scribe/internal/store"
)

// SyncToCloud pushes every pending record to the remote store. Per-entity
// failures are logged and skipped; an expired credential aborts the cycle.
func (o *Orchestrator) SyncToCloud(ctx context.Context) error {
	if !o.enabled || o.remote == nil {
		return ErrSyncDisabled
	}
	if err := o.begin(StatePushing); err != nil {
		return err
	}

	var err error
	defer func() { o.end(err) }()
	err = o.pushCycle(ctx)
	return err
}

// pushCycle drains the pending queue. Returns an error only for failures
// that abort the whole cycle (auth, storage, cancellation).
func (o *Orchestrator) pushCycle(ctx context.Context) error {
	pending, err := o.store.ListPending()
	if err != nil {
		return err
	}

	for _, name := range pending.Books {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.pushBook(ctx, name); err != nil {
			if abortsCycle(err) {
				return err
			}
			o.logger.Warn("push book failed", "book", name, "error", err)
			_ = o.store.AddLogEntry("error", remote.BookConfigPath(name), map[string]any{
				"action": "upload",
				"error":  err.Error(),
			})
		}
	}

	for _, key := range pending.Chapters {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.pushChapter(ctx, key.BookName, key.FileName); err != nil {
			if abortsCycle(err) {
				return err
			}
			o.logger.Warn("push chapter failed",
				"book", key.BookName, "chapter", key.FileName, "error", err)
			_ = o.store.AddLogEntry("error", remote.ChapterPath(key.BookName, key.FileName), map[string]any{
				"action": "upload",
				"error":  err.Error(),
			})
		}
	}

	return nil
}

// pushBook uploads one book config and flips the record to synced together
// with its sync metadata.
func (o *Orchestrator) pushBook(ctx context.Context, name string) error {
	rec, err := o.store.GetBook(name)
	if err != nil {
		return err
	}
	if rec == nil {
		// Deleted since the pending snapshot was taken.
		return nil
	}

	content, err := json.MarshalIndent(rec.Config, "", "  ")
	if err != nil {
		return fmt.Errorf("encode book config: %w", err)
	}

	path := remote.BookConfigPath(name)
	fileID, err := o.remote.Upsert(ctx, path, content)
	if err != nil {
		return err
	}

	if err := o.store.CompleteBookPush(name, path, fileID, rec.LastModified); err != nil {
		return err
	}
	_ = o.store.AddLogEntry("upload", path, map[string]any{"remote_file_id": fileID})
	o.logger.Debug("pushed book", "book", name, "remote_file_id", fileID)
	return nil
}

// pushChapter uploads one chapter file and flips the record to synced.
func (o *Orchestrator) pushChapter(ctx context.Context, bookName, fileName string) error {
	rec, err := o.store.GetChapter(bookName, fileName)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	path := remote.ChapterPath(bookName, fileName)
	fileID, err := o.remote.Upsert(ctx, path, []byte(rec.Content))
	if err != nil {
		return err
	}

	if err := o.store.CompleteChapterPush(bookName, fileName, path, fileID, rec.LastModified); err != nil {
		return err
	}
	_ = o.store.AddLogEntry("upload", path, map[string]any{"remote_file_id": fileID})
	o.logger.Debug("pushed chapter", "book", bookName, "chapter", fileName, "remote_file_id", fileID)
	return nil
}

// abortsCycle reports whether an entity-level failure must abort the whole
// cycle instead of being skipped.
func abortsCycle(err error) bool {
	return errors.Is(err, remote.ErrAuthExpired) ||
		errors.Is(err, store.ErrStorageUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
