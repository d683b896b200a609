package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the user-editable configuration for the sync layer, stored as
// YAML in the config dir. Zero values are filled from defaults on load.
type Settings struct {
	SyncEnabled  bool          `yaml:"sync_enabled"`
	Account      string        `yaml:"account,omitempty"`
	RemoteFolder string        `yaml:"remote_folder,omitempty"`
	WorkspaceDir string        `yaml:"workspace_dir,omitempty"`
	PushDebounce time.Duration `yaml:"push_debounce,omitempty"`
}

// DefaultRemoteFolder is the Drive folder that holds the synced library.
const DefaultRemoteFolder = "Scribe"

func defaultSettings() Settings {
	return Settings{
		SyncEnabled:  true,
		RemoteFolder: DefaultRemoteFolder,
		PushDebounce: 2 * time.Second,
	}
}

// LoadSettings reads the settings file, returning defaults if it is absent.
func LoadSettings() (Settings, error) {
	s := defaultSettings()

	path, err := SettingsPath()
	if err != nil {
		return s, fmt.Errorf("resolve settings path: %w", err)
	}

	b, err := os.ReadFile(path) //nolint:gosec // config-dir path
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	if s.RemoteFolder == "" {
		s.RemoteFolder = DefaultRemoteFolder
	}
	if s.PushDebounce <= 0 {
		s.PushDebounce = defaultSettings().PushDebounce
	}
	return s, nil
}

// SaveSettings writes the settings file atomically.
func SaveSettings(s Settings) error {
	if _, err := EnsureDir(); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	path, err := SettingsPath()
	if err != nil {
		return fmt.Errorf("resolve settings path: %w", err)
	}

	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}
