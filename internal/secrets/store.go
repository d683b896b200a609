// Package secrets stores OAuth refresh tokens in the OS keychain, with an
// encrypted file fallback for headless systems.
package secrets

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"

	"github.com/automagik-dev/scribe/internal/config"
)

// Token is a stored credential for one account.
type Token struct {
	RefreshToken string   `json:"refresh_token"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Store wraps the keyring backend.
type Store struct {
	ring keyring.Keyring
}

// OpenDefault opens the default token store.
func OpenDefault() (*Store, error) {
	dir, err := config.EnsureDir()
	if err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              config.AppName,
		KeychainTrustApplication: true,
		FileDir:                  filepath.Join(dir, "keyring"),
		FilePasswordFunc:         keyring.FixedStringPrompt(config.AppName),
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

func tokenKey(email string) string {
	return "token:" + email
}

// ParseTokenKey extracts the email from a token key.
func ParseTokenKey(key string) (string, bool) {
	email, ok := strings.CutPrefix(key, "token:")
	if !ok || email == "" {
		return "", false
	}
	return email, true
}

// GetToken retrieves the stored token for an account. Returns
// keyring.ErrKeyNotFound if none is stored.
func (s *Store) GetToken(email string) (Token, error) {
	item, err := s.ring.Get(tokenKey(email))
	if err != nil {
		return Token{}, err
	}

	var tok Token
	if err := json.Unmarshal(item.Data, &tok); err != nil {
		return Token{}, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}

// SetToken stores the token for an account.
func (s *Store) SetToken(email string, tok Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	return s.ring.Set(keyring.Item{
		Key:  tokenKey(email),
		Data: b,
	})
}

// DeleteToken removes the stored token for an account.
func (s *Store) DeleteToken(email string) error {
	return s.ring.Remove(tokenKey(email))
}

// Keys lists all stored token keys.
func (s *Store) Keys() ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, err
	}

	var tokenKeys []string
	for _, k := range keys {
		if _, ok := ParseTokenKey(k); ok {
			tokenKeys = append(tokenKeys, k)
		}
	}
	return tokenKeys, nil
}
