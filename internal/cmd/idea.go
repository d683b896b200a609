package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/automagik-dev/scribe/internal/outfmt"
	"github.com/automagik-dev/scribe/internal/ui"
)

// IdeaCmd groups idea-note operations. Ideas hang off a chapter of a book
// and ride along in the book config.
type IdeaCmd struct {
	Add IdeaAddCmd `cmd:"" help:"Attach an idea note to a chapter"`
	Ls  IdeaLsCmd  `cmd:"" aliases:"list" help:"List idea notes for a chapter"`
}

type IdeaAddCmd struct {
	Book    string `arg:"" help:"Book name"`
	Chapter string `arg:"" help:"Chapter file name"`
	Text    string `arg:"" help:"Idea text"`
}

func (c *IdeaAddCmd) Run(ctx context.Context, flags *RootFlags) error {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return usagef("empty idea text")
	}

	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	idea, err := app.lib.AddIdea(c.Book, c.Chapter, text)
	if err != nil {
		return err
	}
	app.flushPending(ctx)

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"added":   true,
			"book":    c.Book,
			"chapter": c.Chapter,
			"idea":    idea,
		})
	}
	ui.FromContext(ctx).Out().Printf("added\t%s\n", idea.ID)
	return nil
}

type IdeaLsCmd struct {
	Book    string `arg:"" help:"Book name"`
	Chapter string `arg:"" help:"Chapter file name"`
}

func (c *IdeaLsCmd) Run(ctx context.Context, flags *RootFlags) error {
	app, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer app.Close()

	ideas, err := app.lib.ListIdeas(c.Book, c.Chapter)
	if err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"book":    c.Book,
			"chapter": c.Chapter,
			"ideas":   ideas,
			"count":   len(ideas),
		})
	}

	u := ui.FromContext(ctx)
	if len(ideas) == 0 {
		u.Err().Println("No ideas")
		return nil
	}
	for _, idea := range ideas {
		u.Out().Printf("%s\t%s\t%s\n",
			idea.ID, idea.CreatedAt.Format(time.RFC3339), idea.Text)
	}
	return nil
}
