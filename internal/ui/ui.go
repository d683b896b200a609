// Package ui owns the human-facing output streams. Commands print through a
// UI fetched from the context so tests can capture output.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Options configures a UI.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Color is auto, always, or never.
	Color string
}

// UI holds the output streams for a command invocation.
type UI struct {
	out   *Printer
	err   *Printer
	color string
}

// New validates the options and builds a UI. Nil writers default to the
// process streams.
func New(opts Options) (*UI, error) {
	switch opts.Color {
	case "", "auto", "always", "never":
	default:
		return nil, fmt.Errorf("invalid --color value %q (expected auto|always|never)", opts.Color)
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	color := opts.Color
	if color == "" {
		color = "auto"
	}

	return &UI{
		out:   &Printer{w: stdout},
		err:   &Printer{w: stderr},
		color: color,
	}, nil
}

// Out returns the stdout printer.
func (u *UI) Out() *Printer { return u.out }

// Err returns the stderr printer.
func (u *UI) Err() *Printer { return u.err }

// Printer writes formatted text to one stream.
type Printer struct {
	w io.Writer
}

func (p *Printer) Print(args ...any) {
	fmt.Fprint(p.w, args...)
}

func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.w, args...)
}

// Error prints a message prefixed as an error.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "Error: %s\n", msg)
}

type ctxKey struct{}

// WithUI attaches a UI to the context.
func WithUI(ctx context.Context, u *UI) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the UI from the context, or one over the process
// streams if none was attached.
func FromContext(ctx context.Context) *UI {
	if u, ok := ctx.Value(ctxKey{}).(*UI); ok {
		return u
	}
	u, _ := New(Options{})
	return u
}
