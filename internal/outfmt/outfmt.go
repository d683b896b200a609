// Package outfmt controls machine-readable command output: a text/json/plain
// mode carried on the context, plus optional jq post-processing of JSON.
package outfmt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/itchyny/gojq"
)

type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
	// ModePlain is tab-separated output for scripting, no headers.
	ModePlain Mode = "plain"
)

func Parse(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeText, "":
		return ModeText, nil
	case ModeJSON:
		return ModeJSON, nil
	case ModePlain:
		return ModePlain, nil
	default:
		return "", errors.New("invalid --output (expected text|json|plain)")
	}
}

// FromFlags maps the --json/--plain boolean flags onto a mode. JSON wins if
// both are set.
func FromFlags(jsonFlag, plainFlag bool) Mode {
	switch {
	case jsonFlag:
		return ModeJSON
	case plainFlag:
		return ModePlain
	default:
		return ModeText
	}
}

type modeKey struct{}
type jqKey struct{}

func WithMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, modeKey{}, mode)
}

// WithJQ attaches a jq expression applied by WriteJSON.
func WithJQ(ctx context.Context, expr string) context.Context {
	if expr == "" {
		return ctx
	}
	return context.WithValue(ctx, jqKey{}, expr)
}

func FromContext(ctx context.Context) Mode {
	if m, ok := ctx.Value(modeKey{}).(Mode); ok {
		return m
	}
	return ModeText
}

func IsJSON(ctx context.Context) bool {
	return FromContext(ctx) == ModeJSON
}

func IsPlain(ctx context.Context) bool {
	return FromContext(ctx) == ModePlain
}

// WriteJSON encodes v to w, applying any jq expression carried on the
// context. jq output is raw: a filter selecting a single string yields that
// string as a JSON value, not a wrapped envelope.
func WriteJSON(ctx context.Context, w io.Writer, v any) error {
	if expr, ok := ctx.Value(jqKey{}).(string); ok && expr != "" {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out, err := ApplyJQ(raw, expr)
		if err != nil {
			return err
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		_, err = w.Write(out)
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ApplyJQ runs a jq expression over JSON bytes. Multiple results are emitted
// newline-separated.
func ApplyJQ(jsonBytes []byte, expression string) ([]byte, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expression, err)
	}

	var input any
	if err := json.Unmarshal(jsonBytes, &input); err != nil {
		return nil, fmt.Errorf("parse JSON for jq: %w", err)
	}

	iter := query.Run(input)
	var results []byte
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal jq result: %w", err)
		}
		if len(results) > 0 {
			results = append(results, '\n')
		}
		results = append(results, b...)
	}
	return results, nil
}
