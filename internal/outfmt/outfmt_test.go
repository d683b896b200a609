package outfmt

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeText, false},
		{"text", ModeText, false},
		{"JSON", ModeJSON, false},
		{"plain", ModePlain, false},
		{"yaml", "", true},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestModeContext(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != ModeText {
		t.Fatalf("default mode should be text")
	}

	ctx = WithMode(ctx, ModeJSON)
	if !IsJSON(ctx) {
		t.Fatalf("expected JSON mode")
	}
	if IsPlain(ctx) {
		t.Fatalf("unexpected plain mode")
	}

	ctx = WithMode(ctx, ModePlain)
	if !IsPlain(ctx) {
		t.Fatalf("expected plain mode")
	}
}

func TestFromFlags(t *testing.T) {
	if FromFlags(true, true) != ModeJSON {
		t.Fatalf("json flag should win over plain")
	}
	if FromFlags(false, true) != ModePlain {
		t.Fatalf("plain flag should select plain mode")
	}
	if FromFlags(false, false) != ModeText {
		t.Fatalf("no flags should select text mode")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]any{"name": "drafts", "chapters": 2}
	if err := WriteJSON(context.Background(), &buf, v); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"name": "drafts"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWriteJSONWithJQ(t *testing.T) {
	ctx := WithJQ(context.Background(), ".books[].name")
	var buf bytes.Buffer
	v := map[string]any{
		"books": []map[string]any{
			{"name": "alpha"},
			{"name": "beta"},
		},
	}
	if err := WriteJSON(ctx, &buf, v); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	want := "\"alpha\"\n\"beta\"\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestApplyJQInvalidExpression(t *testing.T) {
	if _, err := ApplyJQ([]byte(`{}`), "..."); err == nil {
		t.Fatalf("expected error for invalid expression")
	}
}

func TestApplyJQSelect(t *testing.T) {
	out, err := ApplyJQ([]byte(`{"status":"synced","pending":0}`), ".status")
	if err != nil {
		t.Fatalf("ApplyJQ: %v", err)
	}
	if string(out) != `"synced"` {
		t.Errorf("got %s", out)
	}
}
