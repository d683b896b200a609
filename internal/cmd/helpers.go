package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/automagik-dev/scribe/internal/outfmt"
	"github.com/automagik-dev/scribe/internal/ui"
)

// tableWriter returns a tab-aligned writer for text mode and a raw TSV
// writer for plain mode, plus a flush func.
func tableWriter(ctx context.Context) (*tabwriter.Writer, func()) {
	var w *tabwriter.Writer
	if outfmt.IsPlain(ctx) {
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 0, ' ', 0)
	} else {
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	}
	return w, func() { _ = w.Flush() }
}

// confirmDestructive prompts before a destructive action. --force skips the
// prompt; --no-input fails instead of prompting.
func confirmDestructive(ctx context.Context, flags *RootFlags, action string) error {
	if flags.Force {
		return nil
	}
	if flags.NoInput {
		return usagef("refusing to %s without confirmation (use --force)", action)
	}

	u := ui.FromContext(ctx)
	u.Err().Printf("About to %s. Continue? [y/N] ", action)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "y", "yes":
		return nil
	default:
		return &ExitError{Code: exitGeneric, Err: fmt.Errorf("aborted")}
	}
}
