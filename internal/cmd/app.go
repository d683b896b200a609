package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/automagik-dev/scribe/internal/auth"
	"github.com/automagik-dev/scribe/internal/config"
	"github.com/automagik-dev/scribe/internal/library"
	"github.com/automagik-dev/scribe/internal/remote"
	"github.com/automagik-dev/scribe/internal/secrets"
	"github.com/automagik-dev/scribe/internal/store"
	"github.com/automagik-dev/scribe/internal/syncer"
)

// app holds the wired-up services behind every command: the local store, the
// settings, the auth gate, and the sync orchestrator. The remote side stays
// nil when the user is signed out; everything local still works.
type app struct {
	db       *store.DB
	settings config.Settings
	authp    *auth.KeyringProvider
	orch     *syncer.Orchestrator
	lib      *library.Service
	account  string
}

// openApp wires the services for one command invocation. The remote store is
// attached only when sync is enabled and a token is stored; a failure to
// reach Drive degrades to local-only instead of failing the command.
func openApp(ctx context.Context, flags *RootFlags) (*app, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}

	account := flags.Account
	if account == "" {
		account = settings.Account
	}

	db, err := store.OpenDefault()
	if err != nil {
		return nil, err
	}

	tokens, err := secrets.OpenDefault()
	if err != nil {
		db.Close()
		return nil, err
	}
	authp := auth.NewProvider(account, tokens)

	var rs remote.Store
	if settings.SyncEnabled && authp.IsSignedIn() {
		rs, err = openDriveStore(ctx, authp, settings.RemoteFolder)
		if err != nil {
			// Local operation must not depend on the network.
			rs = nil
		}
	}

	orch := syncer.New(syncer.Options{
		Store:    db,
		Remote:   rs,
		Auth:     authp,
		Enabled:  settings.SyncEnabled,
		Debounce: settings.PushDebounce,
	})

	return &app{
		db:       db,
		settings: settings,
		authp:    authp,
		orch:     orch,
		lib:      library.New(db, orch),
		account:  account,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// flushPending makes one bounded push attempt so a mutation from a one-shot
// command reaches the cloud before the process exits. Failures are swallowed:
// the record stays pending and syncs on the next opportunity.
func (a *app) flushPending(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	err := a.orch.SyncToCloud(ctx)
	switch {
	case err == nil:
	case errors.Is(err, syncer.ErrSyncDisabled), errors.Is(err, syncer.ErrSyncInFlight):
	default:
		slog.Debug("push after mutation failed; changes remain pending", "error", err)
	}
}

const flushTimeout = 10 * time.Second

// requireRemote re-wires the remote store, failing loudly where openApp
// degrades silently. Used by explicit sync commands.
func (a *app) requireRemote(ctx context.Context) (*syncer.Orchestrator, error) {
	if !a.settings.SyncEnabled {
		return nil, syncer.ErrSyncDisabled
	}
	if !a.authp.IsSignedIn() {
		return nil, fmt.Errorf("not signed in: %w", remote.ErrAuthExpired)
	}

	rs, err := openDriveStore(ctx, a.authp, a.settings.RemoteFolder)
	if err != nil {
		return nil, err
	}

	orch := syncer.New(syncer.Options{
		Store:    a.db,
		Remote:   rs,
		Auth:     a.authp,
		Enabled:  true,
		Debounce: a.settings.PushDebounce,
	})
	a.orch = orch
	a.lib = library.New(a.db, orch)
	return orch, nil
}

func openDriveStore(ctx context.Context, authp *auth.KeyringProvider, folder string) (remote.Store, error) {
	ts, err := authp.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}

	if folder == "" {
		folder = config.DefaultRemoteFolder
	}
	rootID, err := remote.ResolveRootFolder(ctx, svc, folder)
	if err != nil {
		return nil, err
	}
	return remote.NewDriveStore(svc, rootID), nil
}
