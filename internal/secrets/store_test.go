package secrets

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestTokenKey(t *testing.T) {
	if got := tokenKey("a@b.com"); got != "token:a@b.com" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestParseTokenKey(t *testing.T) {
	email, ok := ParseTokenKey("token:a@b.com")
	if !ok {
		t.Fatalf("expected ok")
	}
	if email != "a@b.com" {
		t.Fatalf("unexpected: %q", email)
	}
	if _, ok := ParseTokenKey("nope"); ok {
		t.Fatalf("expected not ok")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := &Store{ring: keyring.NewArrayKeyring(nil)}

	if _, err := s.GetToken("a@b.com"); !errors.Is(err, keyring.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	tok := Token{RefreshToken: "rt1", Scopes: []string{"scope"}}
	if err := s.SetToken("a@b.com", tok); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	got, err := s.GetToken("a@b.com")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got.RefreshToken != "rt1" || len(got.Scopes) != 1 {
		t.Fatalf("unexpected token: %#v", got)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "token:a@b.com" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	if err := s.DeleteToken("a@b.com"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if _, err := s.GetToken("a@b.com"); !errors.Is(err, keyring.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}
