// Package errfmt turns internal errors into messages fit for the terminal,
// with a recovery hint where one exists.
package errfmt

import (
	"errors"
	"strings"

	"github.com/automagik-dev/scribe/internal/config"
	"github.com/automagik-dev/scribe/internal/remote"
	"github.com/automagik-dev/scribe/internal/store"
)

// Format renders err for the user. Known failure classes get a hint appended;
// everything else is the error text as-is.
func Format(err error) string {
	if err == nil {
		return ""
	}

	msg := strings.TrimSpace(err.Error())

	var credsMissing *config.CredentialsMissingError
	switch {
	case errors.As(err, &credsMissing):
		return msg + "\nRun 'scribe auth credentials <client.json>' to configure an OAuth client."
	case errors.Is(err, remote.ErrAuthExpired):
		return msg + "\nRun 'scribe auth add' to sign in again."
	case errors.Is(err, remote.ErrNetwork):
		return msg + "\nCheck your connection; local changes are kept and will sync later."
	case errors.Is(err, store.ErrStorageUnavailable):
		return msg + "\nThe local library database could not be accessed."
	}
	return msg
}
