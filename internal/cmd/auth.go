package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/automagik-dev/scribe/internal/auth"
	"github.com/automagik-dev/scribe/internal/config"
	"github.com/automagik-dev/scribe/internal/outfmt"
	"github.com/automagik-dev/scribe/internal/secrets"
	"github.com/automagik-dev/scribe/internal/ui"
)

// AuthCmd groups credential management.
type AuthCmd struct {
	Credentials AuthCredentialsCmd `cmd:"" aliases:"creds" help:"Store the OAuth client credentials file"`
	Add         AuthAddCmd         `cmd:"" aliases:"login" help:"Authorize an account and store its refresh token"`
	Remove      AuthRemoveCmd      `cmd:"" aliases:"logout,rm" help:"Remove a stored refresh token"`
	Ls          AuthLsCmd          `cmd:"" aliases:"list" help:"List accounts with stored tokens"`
}

type AuthCredentialsCmd struct {
	File string `arg:"" help:"Path to the OAuth client JSON downloaded from Google Cloud Console" type:"existingfile"`
}

func (c *AuthCredentialsCmd) Run(ctx context.Context, flags *RootFlags) error {
	b, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read credentials file: %w", err)
	}
	creds, err := config.ParseGoogleOAuthClientJSON(b)
	if err != nil {
		return err
	}
	if err := config.WriteClientCredentials(creds); err != nil {
		return err
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"stored":    true,
			"client_id": creds.ClientID,
		})
	}
	ui.FromContext(ctx).Out().Printf("stored\t%s\n", creds.ClientID)
	return nil
}

type AuthAddCmd struct {
	Email        string        `arg:"" help:"Account email to authorize"`
	Manual       bool          `help:"Print the auth URL and paste the redirect back (for headless machines)"`
	ForceConsent bool          `name:"force-consent" help:"Force the consent screen (issues a fresh refresh token)"`
	Timeout      time.Duration `help:"Authorization timeout" default:"2m"`
}

func (c *AuthAddCmd) Run(ctx context.Context, flags *RootFlags) error {
	email := strings.TrimSpace(strings.ToLower(c.Email))
	if email == "" || !strings.Contains(email, "@") {
		return usagef("invalid account email %q", c.Email)
	}

	refreshToken, err := auth.Authorize(ctx, auth.AuthorizeOptions{
		Manual:       c.Manual || flags.NoInput,
		ForceConsent: c.ForceConsent,
		Timeout:      c.Timeout,
	})
	if err != nil {
		return err
	}

	tokens, err := secrets.OpenDefault()
	if err != nil {
		return err
	}
	if err := tokens.SetToken(email, secrets.Token{
		RefreshToken: refreshToken,
		Scopes:       auth.Scopes(),
	}); err != nil {
		return err
	}

	// First signed-in account becomes the sync account.
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if settings.Account == "" {
		settings.Account = email
		if err := config.SaveSettings(settings); err != nil {
			return err
		}
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"authorized": true,
			"account":    email,
		})
	}
	ui.FromContext(ctx).Out().Printf("authorized\t%s\n", email)
	return nil
}

type AuthRemoveCmd struct {
	Email string `arg:"" help:"Account email to sign out"`
}

func (c *AuthRemoveCmd) Run(ctx context.Context, flags *RootFlags) error {
	email := strings.TrimSpace(strings.ToLower(c.Email))

	tokens, err := secrets.OpenDefault()
	if err != nil {
		return err
	}
	if err := tokens.DeleteToken(email); err != nil {
		return fmt.Errorf("remove token for %s: %w", email, err)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if settings.Account == email {
		settings.Account = ""
		if err := config.SaveSettings(settings); err != nil {
			return err
		}
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"removed": true,
			"account": email,
		})
	}
	ui.FromContext(ctx).Out().Printf("removed\t%s\n", email)
	return nil
}

type AuthLsCmd struct{}

func (c *AuthLsCmd) Run(ctx context.Context, flags *RootFlags) error {
	tokens, err := secrets.OpenDefault()
	if err != nil {
		return err
	}
	keys, err := tokens.Keys()
	if err != nil {
		return err
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	accounts := make([]string, 0, len(keys))
	for _, k := range keys {
		if email, ok := secrets.ParseTokenKey(k); ok {
			accounts = append(accounts, email)
		}
	}

	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(ctx, os.Stdout, map[string]any{
			"accounts": accounts,
			"active":   settings.Account,
			"count":    len(accounts),
		})
	}

	u := ui.FromContext(ctx)
	if len(accounts) == 0 {
		u.Err().Println("No accounts")
		return nil
	}
	for _, a := range accounts {
		marker := ""
		if a == settings.Account {
			marker = "\t(active)"
		}
		u.Out().Printf("%s%s\n", a, marker)
	}
	return nil
}
