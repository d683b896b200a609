// Package auth supplies the authentication gate for sync: a signed-in check
// and a capability to obtain a fresh Google OAuth credential.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/automagik-dev/scribe/internal/config"
	"github.com/automagik-dev/scribe/internal/remote"
	"github.com/automagik-dev/scribe/internal/secrets"
)

// Scopes returns the OAuth scopes the app requests. drive.file restricts
// access to files the app itself created.
func Scopes() []string {
	return []string{"https://www.googleapis.com/auth/drive.file"}
}

// Provider is the boolean gate plus credential capability consumed by the
// sync orchestrator.
type Provider interface {
	IsSignedIn() bool
	EnsureValidToken(ctx context.Context) (*oauth2.Token, error)
}

// KeyringProvider implements Provider on top of the keyring token store.
type KeyringProvider struct {
	account string
	tokens  *secrets.Store
}

// NewProvider creates a provider for the given account email. An empty
// account is valid and reports signed-out.
func NewProvider(account string, tokens *secrets.Store) *KeyringProvider {
	return &KeyringProvider{account: account, tokens: tokens}
}

// IsSignedIn reports whether a refresh token is stored for the account.
func (p *KeyringProvider) IsSignedIn() bool {
	if p.account == "" || p.tokens == nil {
		return false
	}
	_, err := p.tokens.GetToken(p.account)
	return err == nil
}

// EnsureValidToken exchanges the stored refresh token for a live access
// token. Failures are classified as auth-expired for the sync layer.
func (p *KeyringProvider) EnsureValidToken(ctx context.Context) (*oauth2.Token, error) {
	ts, err := p.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", errors.Join(remote.ErrAuthExpired, WrapOAuthError(err)))
	}
	return tok, nil
}

// TokenSource returns an oauth2 token source for the account, suitable for
// constructing API clients.
func (p *KeyringProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if p.account == "" {
		return nil, fmt.Errorf("no account configured: %w", remote.ErrAuthExpired)
	}

	creds, err := config.ReadClientCredentials()
	if err != nil {
		return nil, err
	}

	stored, err := p.tokens.GetToken(p.account)
	if err != nil {
		return nil, fmt.Errorf("no stored token for %s: %w", p.account, errors.Join(remote.ErrAuthExpired, err))
	}

	cfg := oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes(),
	}
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: stored.RefreshToken}), nil
}
