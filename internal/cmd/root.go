// Package cmd wires the scribe CLI: flag parsing, output mode, and the
// commands over the library and sync layers.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/automagik-dev/scribe/internal/errfmt"
	"github.com/automagik-dev/scribe/internal/outfmt"
	"github.com/automagik-dev/scribe/internal/ui"
)

const colorNever = "never"

type RootFlags struct {
	Color   string `help:"Color output: auto|always|never" default:"${color}"`
	Account string `help:"Account email for sync (overrides the configured account)" short:"a"`
	JSON    bool   `help:"Output JSON to stdout (best for scripting)" aliases:"machine" short:"j"`
	Plain   bool   `help:"Output stable, parseable text to stdout (TSV; no colors)" aliases:"tsv" short:"p"`
	JQ      string `name:"jq" help:"Apply jq expression to JSON output"`
	Force   bool   `help:"Skip confirmations for destructive commands" aliases:"yes,assume-yes" short:"y"`
	NoInput bool   `help:"Never prompt; fail instead (useful for CI)" aliases:"non-interactive"`
	Verbose bool   `help:"Enable verbose logging" short:"v"`
}

type CLI struct {
	RootFlags `embed:""`

	Version kong.VersionFlag `help:"Print version and exit"`

	Book      BookCmd       `cmd:"" aliases:"books" help:"Manage books"`
	Chapter   ChapterCmd    `cmd:"" aliases:"chapters,ch" help:"Manage chapters"`
	Idea      IdeaCmd       `cmd:"" aliases:"ideas" help:"Capture and list idea notes"`
	Sync      SyncCmd       `cmd:"" help:"Cloud sync"`
	Status    SyncStatusCmd `cmd:"" aliases:"st" help:"Show sync status (alias for 'sync status')"`
	Auth      AuthCmd       `cmd:"" help:"Auth and credentials"`
	Workspace WorkspaceCmd  `cmd:"" aliases:"ws" help:"Plain-file workspace for external editors"`
}

type exitPanic struct{ code int }

func Execute(args []string) (err error) {
	parser, cli, err := newParser()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if ep, ok := r.(exitPanic); ok {
				if ep.code == 0 {
					err = nil
					return
				}
				err = &ExitError{Code: ep.code, Err: errors.New("exited")}
				return
			}
			panic(r)
		}
	}()

	kctx, err := parser.Parse(args)
	if err != nil {
		parsedErr := wrapParseError(err)
		_, _ = fmt.Fprintln(os.Stderr, errfmt.Format(parsedErr))
		return parsedErr
	}

	// --jq requires JSON output; reject early if combined with --plain.
	if cli.JQ != "" {
		if cli.Plain {
			cmdErr := usagef("--jq requires --json output (incompatible with --plain)")
			_, _ = fmt.Fprintln(os.Stderr, errfmt.Format(cmdErr))
			return cmdErr
		}
		cli.JSON = true
	}

	logLevel := slog.LevelWarn
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	// Default to JSON when stdout is piped, unless the user chose a mode.
	if envBool("SCRIBE_AUTO_JSON") && !cli.JSON && !cli.Plain && !term.IsTerminal(int(os.Stdout.Fd())) {
		cli.JSON = true
	}

	ctx := context.Background()
	ctx = outfmt.WithMode(ctx, outfmt.FromFlags(cli.JSON, cli.Plain))
	ctx = outfmt.WithJQ(ctx, cli.JQ)

	uiColor := cli.Color
	if outfmt.IsJSON(ctx) || outfmt.IsPlain(ctx) {
		uiColor = colorNever
	}
	u, err := ui.New(ui.Options{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Color:  uiColor,
	})
	if err != nil {
		return newUsageError(err)
	}
	ctx = ui.WithUI(ctx, u)

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(&cli.RootFlags)

	err = kctx.Run()
	if err == nil {
		return nil
	}
	if ExitCode(err) == 0 {
		return nil
	}
	err = stableExitCode(err)

	if msg := strings.TrimSpace(errfmt.Format(err)); msg != "" {
		u.Err().Error(msg)
	}
	return err
}

func newParser() (*kong.Kong, *CLI, error) {
	vars := kong.Vars{
		"color":   envOr("SCRIBE_COLOR", "auto"),
		"version": VersionString(),
	}

	cli := &CLI{}
	parser, err := kong.New(
		cli,
		kong.Name("scribe"),
		kong.Description("Local-first writing library with cloud sync"),
		kong.UsageOnError(),
		kong.Vars(vars),
		kong.Writers(os.Stdout, os.Stderr),
		kong.Exit(func(code int) { panic(exitPanic{code: code}) }),
	)
	if err != nil {
		return nil, nil, err
	}
	return parser, cli, nil
}

func wrapParseError(err error) error {
	if err == nil {
		return nil
	}
	var parseErr *kong.ParseError
	if errors.As(err, &parseErr) {
		return &ExitError{Code: exitUsage, Err: parseErr}
	}
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
