package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automagik-dev/scribe/internal/config"
	"github.com/automagik-dev/scribe/internal/outfmt"
	"github.com/automagik-dev/scribe/internal/ui"
	"github.com/automagik-dev/scribe/internal/workspace"
)

// WorkspaceCmd groups plain-file workspace operations.
type WorkspaceCmd struct {
	Export WorkspaceExportCmd `cmd:"" help:"Export chapters to the workspace directory"`
	Watch  WorkspaceWatchCmd  `cmd:"" help:"Watch the workspace and sync edits back into the library"`
}

func workspaceDir(settings config.Settings) (string, error) {
	if settings.WorkspaceDir != "" {
		return settings.WorkspaceDir, nil
	}
	return config.DefaultWorkspaceDir()
}

type WorkspaceExportCmd struct {
	Book string `arg:"" optional:"" help:"Export only this book"`
}

func (c *WorkspaceExportCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	dir, err := workspaceDir(app.settings)
	if err != nil {
		return err
	}
	mirror, err := workspace.NewMirror(dir, app.lib)
	if err != nil {
		return err
	}

	if c.Book != "" {
		err = mirror.ExportBook(c.Book)
	} else {
		err = mirror.ExportAll()
	}
	if err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"exported": true,
			"dir":      mirror.Root(),
		})
	}
	ui.FromContext(ctx).Out().Printf("exported\t%s\n", mirror.Root())
	return nil
}

type WorkspaceWatchCmd struct {
	Debounce time.Duration `help:"Delay before saving an edited file" default:"500ms"`
}

func (c *WorkspaceWatchCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	dir, err := workspaceDir(app.settings)
	if err != nil {
		return err
	}
	mirror, err := workspace.NewMirror(dir, app.lib)
	if err != nil {
		return err
	}
	if err := mirror.ExportAll(); err != nil {
		return err
	}

	watcher, err := workspace.NewWatcher(mirror, slog.Default(), c.Debounce)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.orch.Initialize(ctx); err != nil {
		return err
	}

	// Saved edits notify the orchestrator; the queue pushes them after the
	// configured debounce.
	go func() {
		if err := app.orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("sync queue stopped", "error", err)
		}
	}()

	u := ui.FromContext(ctx)
	u.Err().Printf("Watching %s\n", mirror.Root())
	u.Err().Println("Press Ctrl+C to stop")

	if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	u.Err().Println("Stopped")
	return nil
}
