package cmd

import (
	"errors"
	"fmt"

	"github.com/automagik-dev/scribe/internal/remote"
	"github.com/automagik-dev/scribe/internal/store"
)

// Exit codes are stable for scripting: 1 generic, 2 usage, 3 auth,
// 4 network, 5 local storage.
const (
	exitGeneric = 1
	exitUsage   = 2
	exitAuth    = 3
	exitNetwork = 4
	exitStorage = 5
)

// ExitError carries an explicit process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error from Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return exitGeneric
}

// stableExitCode wraps err with the exit code for its failure class.
func stableExitCode(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return err
	}
	switch {
	case errors.Is(err, remote.ErrAuthExpired):
		return &ExitError{Code: exitAuth, Err: err}
	case errors.Is(err, remote.ErrNetwork):
		return &ExitError{Code: exitNetwork, Err: err}
	case errors.Is(err, store.ErrStorageUnavailable):
		return &ExitError{Code: exitStorage, Err: err}
	default:
		return err
	}
}

// usagef builds a usage error (exit code 2).
func usagef(format string, args ...any) error {
	return &ExitError{Code: exitUsage, Err: fmt.Errorf(format, args...)}
}

func newUsageError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: exitUsage, Err: err}
}
