package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/automagik-dev/scribe/internal/remote"
	"github.com/automagik-dev/scribe/internal/store"
)

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d", got)
	}
	if got := ExitCode(errors.New("boom")); got != exitGeneric {
		t.Errorf("generic error exit = %d, want %d", got, exitGeneric)
	}
	if got := ExitCode(&ExitError{Code: exitUsage}); got != exitUsage {
		t.Errorf("usage error exit = %d, want %d", got, exitUsage)
	}
}

func TestStableExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", remote.ErrAuthExpired), exitAuth},
		{fmt.Errorf("x: %w", remote.ErrNetwork), exitNetwork},
		{fmt.Errorf("x: %w", store.ErrStorageUnavailable), exitStorage},
	}
	for _, tc := range cases {
		if got := ExitCode(stableExitCode(tc.err)); got != tc.want {
			t.Errorf("stableExitCode(%v) exit = %d, want %d", tc.err, got, tc.want)
		}
	}

	// Plain errors pass through unwrapped.
	plain := errors.New("boom")
	if got := stableExitCode(plain); got != plain {
		t.Errorf("plain error was wrapped: %v", got)
	}
}

func TestUsagef(t *testing.T) {
	err := usagef("bad flag %q", "x")
	if ExitCode(err) != exitUsage {
		t.Errorf("usagef exit = %d, want %d", ExitCode(err), exitUsage)
	}
	if err.Error() != `bad flag "x"` {
		t.Errorf("message = %q", err.Error())
	}
}

func TestExecute_UnknownCommandIsUsageError(t *testing.T) {
	err := Execute([]string{"nope-nope-nope"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != exitUsage {
		t.Errorf("exit = %d, want %d", ExitCode(err), exitUsage)
	}
}

func TestExecute_JQWithPlainRejected(t *testing.T) {
	err := Execute([]string{"--plain", "--jq", ".x", "book", "ls"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != exitUsage {
		t.Errorf("exit = %d, want %d", ExitCode(err), exitUsage)
	}
}
