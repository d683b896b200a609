package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/automagik-dev/scribe/internal/outfmt"
	"github.com/automagik-dev/scribe/internal/ui"
)

// SyncCmd groups cloud sync operations.
type SyncCmd struct {
	Now    SyncNowCmd    `cmd:"" aliases:"force" help:"Push then pull, immediately"`
	Push   SyncPushCmd   `cmd:"" aliases:"up" help:"Push pending local changes to the cloud"`
	Pull   SyncPullCmd   `cmd:"" aliases:"down" help:"Pull remote changes into the local library"`
	Status SyncStatusCmd `cmd:"" help:"Show sync status"`
	Log    SyncLogCmd    `cmd:"" aliases:"history" help:"Show recent sync activity"`
}

type SyncNowCmd struct{}

func (c *SyncNowCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	orch, err := app.requireRemote(ctx)
	if err != nil {
		return err
	}
	if err := orch.ForceSync(ctx); err != nil {
		return err
	}
	return printSyncOutcome(ctx, app, "synced")
}

type SyncPushCmd struct{}

func (c *SyncPushCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	orch, err := app.requireRemote(ctx)
	if err != nil {
		return err
	}
	if err := orch.SyncToCloud(ctx); err != nil {
		return err
	}
	return printSyncOutcome(ctx, app, "pushed")
}

type SyncPullCmd struct{}

func (c *SyncPullCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	orch, err := app.requireRemote(ctx)
	if err != nil {
		return err
	}
	if err := orch.SyncFromCloud(ctx); err != nil {
		return err
	}
	return printSyncOutcome(ctx, app, "pulled")
}

func printSyncOutcome(ctx context.Context, app *app, verb string) error {
	pending, err := app.db.ListPending()
	if err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"result":           verb,
			"pending_books":    len(pending.Books),
			"pending_chapters": len(pending.Chapters),
		})
	}
	ui.FromContext(ctx).Out().Printf("%s\tpending=%d\n",
		verb, len(pending.Books)+len(pending.Chapters))
	return nil
}

// SyncStatusCmd reports the derived sync status: synced, pending, offline,
// or error, plus the pending counts and last attempt time.
type SyncStatusCmd struct{}

func (c *SyncStatusCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	status := app.orch.GetSyncStatus()
	pending, err := app.db.ListPending()
	if err != nil {
		return err
	}
	lastAttempt, err := app.orch.LastAttempt()
	if err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		out := map[string]any{
			"status":           string(status),
			"state":            string(app.orch.State()),
			"account":          app.account,
			"sync_enabled":     app.settings.SyncEnabled,
			"signed_in":        app.authp.IsSignedIn(),
			"pending_books":    pending.Books,
			"pending_chapters": pending.Chapters,
		}
		if !lastAttempt.IsZero() {
			out["last_attempt"] = lastAttempt
		}
		return outfmt.WriteJSON(ctx, os.Stdout, out)
	}

	w, flush := tableWriter(ctx)
	defer flush()
	fmt.Fprintf(w, "status\t%s\n", status)
	fmt.Fprintf(w, "account\t%s\n", orDash(app.account))
	fmt.Fprintf(w, "sync_enabled\t%t\n", app.settings.SyncEnabled)
	fmt.Fprintf(w, "signed_in\t%t\n", app.authp.IsSignedIn())
	fmt.Fprintf(w, "pending\t%d\n", len(pending.Books)+len(pending.Chapters))
	if !lastAttempt.IsZero() {
		fmt.Fprintf(w, "last_attempt\t%s\n", lastAttempt.Format(time.RFC3339))
	}
	return nil
}

type SyncLogCmd struct {
	Limit int `help:"Maximum entries to show" default:"20"`
}

func (c *SyncLogCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.db.RecentLogs(c.Limit)
	if err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"entries": entries,
			"count":   len(entries),
		})
	}

	u := ui.FromContext(ctx)
	if len(entries) == 0 {
		u.Err().Println("No sync activity")
		return nil
	}

	w, flush := tableWriter(ctx)
	defer flush()
	fmt.Fprintln(w, "TIME\tACTION\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), e.Action, e.Path)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
