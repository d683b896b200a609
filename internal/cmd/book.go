package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/automagik-dev/scribe/internal/outfmt"
	"github.com/automagik-dev/scribe/internal/ui"
)

// BookCmd groups book operations.
type BookCmd struct {
	Ls     BookLsCmd     `cmd:"" aliases:"list" help:"List books"`
	Create BookCreateCmd `cmd:"" aliases:"add,new" help:"Create a book"`
	Remove BookRemoveCmd `cmd:"" aliases:"rm,delete" help:"Delete a book and its chapters"`
	Show   BookShowCmd   `cmd:"" aliases:"info" help:"Show a book's configuration"`
}

type BookLsCmd struct{}

func (c *BookLsCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	names, err := app.lib.ListBooks()
	if err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"books": names,
			"count": len(names),
		})
	}

	u := ui.FromContext(ctx)
	if len(names) == 0 {
		u.Err().Println("No books")
		return nil
	}
	for _, n := range names {
		u.Out().Println(n)
	}
	return nil
}

type BookCreateCmd struct {
	Name string `arg:"" help:"Book name"`
}

func (c *BookCreateCmd) Run(ctx context.Context, flags *RootFlags) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return usagef("empty book name")
	}

	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.lib.CreateBook(name); err != nil {
		return err
	}
	app.flushPending(ctx)

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"created": true,
			"name":    name,
		})
	}
	ui.FromContext(ctx).Out().Printf("created\t%s\n", name)
	return nil
}

type BookRemoveCmd struct {
	Name string `arg:"" help:"Book name"`
}

func (c *BookRemoveCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	chapters, err := app.lib.ListChapterFiles(c.Name)
	if err != nil {
		return err
	}
	if err := confirmDestructive(ctx, flags,
		fmt.Sprintf("delete book %q and its %d chapter(s)", c.Name, len(chapters))); err != nil {
		return err
	}

	if err := app.lib.DeleteBook(c.Name); err != nil {
		return err
	}
	app.flushPending(ctx)

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"removed": true,
			"name":    c.Name,
		})
	}
	ui.FromContext(ctx).Out().Printf("removed\t%s\n", c.Name)
	return nil
}

type BookShowCmd struct {
	Name string `arg:"" help:"Book name"`
}

func (c *BookShowCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg, err := app.lib.GetBookConfig(c.Name)
	if err != nil {
		return err
	}
	rec, err := app.db.GetBook(c.Name)
	if err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"name":          c.Name,
			"config":        cfg,
			"sync_state":    rec.SyncState,
			"last_modified": rec.LastModified,
		})
	}

	w, flush := tableWriter(ctx)
	defer flush()
	fmt.Fprintf(w, "name\t%s\n", c.Name)
	fmt.Fprintf(w, "sync_state\t%s\n", rec.SyncState)
	fmt.Fprintf(w, "last_modified\t%s\n", rec.LastModified.Format(time.RFC3339))
	fmt.Fprintf(w, "chapters\t%d\n", len(cfg.Chapters))
	for _, ch := range cfg.ChapterOrder {
		fmt.Fprintf(w, "\t%s\n", ch)
	}
	return nil
}
