package errfmt

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/automagik-dev/scribe/internal/remote"
)

func TestFormatNil(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Errorf("Format(nil) = %q", got)
	}
}

func TestFormatPlainError(t *testing.T) {
	if got := Format(errors.New("boom")); got != "boom" {
		t.Errorf("got %q", got)
	}
}

func TestFormatAuthExpiredHasHint(t *testing.T) {
	got := Format(fmt.Errorf("push: %w", remote.ErrAuthExpired))
	if !strings.Contains(got, "scribe auth add") {
		t.Errorf("missing recovery hint: %q", got)
	}
}

func TestFormatNetworkHasHint(t *testing.T) {
	got := Format(fmt.Errorf("pull: %w", remote.ErrNetwork))
	if !strings.Contains(got, "local changes are kept") {
		t.Errorf("missing hint: %q", got)
	}
}
