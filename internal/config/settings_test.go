package config

import (
	"testing"
	"time"
)

// pointConfigAtTempDir redirects the user config dir for the test.
func pointConfigAtTempDir(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadSettings_DefaultsWhenAbsent(t *testing.T) {
	pointConfigAtTempDir(t)

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if !s.SyncEnabled {
		t.Errorf("sync should default to enabled")
	}
	if s.RemoteFolder != DefaultRemoteFolder {
		t.Errorf("remote folder = %q, want %q", s.RemoteFolder, DefaultRemoteFolder)
	}
	if s.PushDebounce <= 0 {
		t.Errorf("push debounce not defaulted: %v", s.PushDebounce)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	pointConfigAtTempDir(t)

	want := Settings{
		SyncEnabled:  true,
		Account:      "a@b.com",
		RemoteFolder: "MyLibrary",
		WorkspaceDir: "/tmp/ws",
		PushDebounce: 5 * time.Second,
	}
	if err := SaveSettings(want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got != want {
		t.Errorf("round trip: got %#v, want %#v", got, want)
	}
}

func TestLoadSettings_FillsEmptyFields(t *testing.T) {
	pointConfigAtTempDir(t)

	if err := SaveSettings(Settings{SyncEnabled: false}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.SyncEnabled {
		t.Errorf("sync_enabled should persist as false")
	}
	if got.RemoteFolder != DefaultRemoteFolder {
		t.Errorf("empty remote folder not filled: %q", got.RemoteFolder)
	}
	if got.PushDebounce <= 0 {
		t.Errorf("empty debounce not filled: %v", got.PushDebounce)
	}
}
