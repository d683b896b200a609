package auth

import (
	"fmt"
	"strings"
)

// WrapOAuthError appends a human-readable hint to known Google OAuth error
// codes. The original error is preserved via %w for unwrapping.
func WrapOAuthError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unauthorized_client"):
		return fmt.Errorf("%w (hint: refresh token expired; re-run 'scribe auth add <email>')", err)
	case strings.Contains(msg, "invalid_grant"):
		return fmt.Errorf("%w (hint: token revoked or invalid; re-run 'scribe auth add <email>')", err)
	case strings.Contains(msg, "invalid_client"):
		return fmt.Errorf("%w (hint: client_id/secret invalid; re-run 'scribe auth credentials')", err)
	}
	return err
}
