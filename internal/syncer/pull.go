package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/automagik-dev/scribe/internal/remote"
	"github.com/automagik-dev/scribe/internal/store"
)

// SyncFromCloud pulls the remote tree and applies inbound changes. Where
// local and remote content differ the remote copy wins; a record whose
// local copy also changed since the last sync passes through the conflict
// state and the event is logged before the remote copy is applied.
func (o *Orchestrator) SyncFromCloud(ctx context.Context) error {
	if !o.enabled || o.remote == nil {
		return ErrSyncDisabled
	}
	if err := o.begin(StatePulling); err != nil {
		return err
	}

	var err error
	defer func() { o.end(err) }()
	err = o.pullCycle(ctx)
	return err
}

// pullCycle walks the remote book tree. A failure listing the top-level
// folder aborts the cycle; a failure on one nested entity is skipped and
// logged so the loop proceeds.
func (o *Orchestrator) pullCycle(ctx context.Context) error {
	names, err := o.remote.List(ctx, remote.BooksFolder)
	if err != nil {
		if errors.Is(err, remote.ErrRemoteNotFound) {
			// Nothing has ever been pushed; there is nothing to pull.
			return nil
		}
		return err
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.pullBook(ctx, name); err != nil {
			if abortsCycle(err) {
				return err
			}
			o.logger.Warn("pull book failed", "book", name, "error", err)
			_ = o.store.AddLogEntry("error", remote.BookFolder(name), map[string]any{
				"action": "download",
				"error":  err.Error(),
			})
		}
	}
	return nil
}

// pullBook applies one remote book: its config file, then its chapter files.
func (o *Orchestrator) pullBook(ctx context.Context, name string) error {
	cfgPath := remote.BookConfigPath(name)
	data, err := o.remote.Read(ctx, cfgPath)
	if err != nil && !errors.Is(err, remote.ErrRemoteNotFound) {
		return err
	}
	if err == nil {
		var cfg store.BookConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("decode remote book config: %w", err)
		}
		if err := o.applyRemoteBook(name, cfg); err != nil {
			return err
		}
	}

	files, err := o.remote.List(ctx, remote.BookFolder(name))
	if err != nil {
		if errors.Is(err, remote.ErrRemoteNotFound) {
			return nil
		}
		return err
	}

	for _, fileName := range files {
		if fileName == remote.BookConfigFile {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.pullChapter(ctx, name, fileName); err != nil {
			if abortsCycle(err) {
				return err
			}
			o.logger.Warn("pull chapter failed",
				"book", name, "chapter", fileName, "error", err)
			_ = o.store.AddLogEntry("error", remote.ChapterPath(name, fileName), map[string]any{
				"action": "download",
				"error":  err.Error(),
			})
		}
	}
	return nil
}

func (o *Orchestrator) applyRemoteBook(name string, cfg store.BookConfig) error {
	local, err := o.store.GetBook(name)
	if err != nil {
		return err
	}

	path := remote.BookConfigPath(name)
	if local != nil && reflect.DeepEqual(local.Config, cfg) {
		// Contents agree; a pending tag just means the push hasn't been
		// confirmed yet, and equal content confirms it.
		if local.SyncState != store.StateSynced {
			if err := o.store.MarkBookSynced(name); err != nil {
				return err
			}
			return o.refreshMetadata(path, local.LastModified)
		}
		return nil
	}

	if local != nil && local.SyncState == store.StatePending {
		o.recordConflict(path, func() error { return o.store.MarkBookConflict(name) })
	}

	if err := o.store.ApplyRemoteBook(name, cfg, time.Now()); err != nil {
		return err
	}
	_ = o.store.AddLogEntry("download", path, nil)
	return o.refreshMetadata(path, time.Now())
}

func (o *Orchestrator) pullChapter(ctx context.Context, bookName, fileName string) error {
	path := remote.ChapterPath(bookName, fileName)
	data, err := o.remote.Read(ctx, path)
	if err != nil {
		return err
	}
	content := string(data)

	local, err := o.store.GetChapter(bookName, fileName)
	if err != nil {
		return err
	}

	if local != nil && local.Content == content {
		if local.SyncState != store.StateSynced {
			if err := o.store.MarkChapterSynced(bookName, fileName); err != nil {
				return err
			}
			return o.refreshMetadata(path, local.LastModified)
		}
		return nil
	}

	if local != nil && local.SyncState == store.StatePending {
		o.recordConflict(path, func() error { return o.store.MarkChapterConflict(bookName, fileName) })
	}

	if err := o.store.ApplyRemoteChapter(bookName, fileName, content, time.Now()); err != nil {
		return err
	}
	_ = o.store.AddLogEntry("download", path, nil)
	return o.refreshMetadata(path, time.Now())
}

// recordConflict surfaces a both-sides-changed record before the remote
// copy overwrites it: the record passes through the conflict state and the
// discarded local edit is noted in the sync log.
func (o *Orchestrator) recordConflict(path string, mark func() error) {
	if err := mark(); err != nil {
		o.logger.Warn("mark conflict failed", "path", path, "error", err)
	}
	_ = o.store.AddLogEntry("conflict", path, map[string]any{"resolution": "remote-wins"})
	o.logger.Warn("sync conflict: remote wins", "path", path)
}

// refreshMetadata records a completed pull for an entity. The remote file
// ID is preserved from any prior sync of the same path.
func (o *Orchestrator) refreshMetadata(path string, localModified time.Time) error {
	fileID := ""
	if existing, err := o.store.GetSyncMetadata(path); err == nil && existing != nil {
		fileID = existing.RemoteFileID
	}

	now := time.Now()
	return o.store.PutSyncMetadata(store.SyncMetadata{
		RemotePath:         path,
		RemoteFileID:       fileID,
		LastSyncTime:       now,
		LocalLastModified:  localModified,
		RemoteLastModified: now,
	})
}
