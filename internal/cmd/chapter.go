package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/automagik-dev/scribe/internal/outfmt"
	"github.com/automagik-dev/scribe/internal/ui"
)

// ChapterCmd groups chapter operations.
type ChapterCmd struct {
	Ls     ChapterLsCmd     `cmd:"" aliases:"list" help:"List a book's chapters"`
	Cat    ChapterCatCmd    `cmd:"" aliases:"show" help:"Print chapter content"`
	Write  ChapterWriteCmd  `cmd:"" aliases:"save,put" help:"Write chapter content from a file or stdin"`
	Remove ChapterRemoveCmd `cmd:"" aliases:"rm,delete" help:"Delete a chapter"`
}

type ChapterLsCmd struct {
	Book string `arg:"" help:"Book name"`
}

func (c *ChapterLsCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	files, err := app.lib.ListChapterFiles(c.Book)
	if err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"book":     c.Book,
			"chapters": files,
			"count":    len(files),
		})
	}

	u := ui.FromContext(ctx)
	if len(files) == 0 {
		u.Err().Println("No chapters")
		return nil
	}
	for _, f := range files {
		u.Out().Println(f)
	}
	return nil
}

type ChapterCatCmd struct {
	Book string `arg:"" help:"Book name"`
	File string `arg:"" help:"Chapter file name"`
}

func (c *ChapterCatCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	content, err := app.lib.GetChapterContent(c.Book, c.File)
	if err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"book":    c.Book,
			"file":    c.File,
			"content": content,
		})
	}
	_, err = io.WriteString(os.Stdout, content)
	return err
}

type ChapterWriteCmd struct {
	Book string `arg:"" help:"Book name"`
	File string `arg:"" help:"Chapter file name"`
	From string `name:"from" help:"Read content from this file instead of stdin" type:"existingfile"`
}

func (c *ChapterWriteCmd) Run(ctx context.Context, flags *RootFlags) error {
	var data []byte
	var err error
	if c.From != "" {
		data, err = os.ReadFile(c.From)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.lib.SaveChapterContent(c.Book, c.File, string(data)); err != nil {
		return err
	}
	app.flushPending(ctx)

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"saved": true,
			"book":  c.Book,
			"file":  c.File,
			"bytes": len(data),
		})
	}
	ui.FromContext(ctx).Out().Printf("saved\t%s/%s\t%d bytes\n", c.Book, c.File, len(data))
	return nil
}

type ChapterRemoveCmd struct {
	Book string `arg:"" help:"Book name"`
	File string `arg:"" help:"Chapter file name"`
}

func (c *ChapterRemoveCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := confirmDestructive(ctx, flags,
		fmt.Sprintf("delete chapter %s/%s", c.Book, c.File)); err != nil {
		return err
	}

	if err := app.lib.DeleteChapterContent(c.Book, c.File); err != nil {
		return err
	}
	app.flushPending(ctx)

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"removed": true,
			"book":    c.Book,
			"file":    c.File,
		})
	}
	ui.FromContext(ctx).Out().Printf("removed\t%s/%s\n", c.Book, c.File)
	return nil
}
