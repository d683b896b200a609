package store

import (
	"database/sql"
	"fmt"
	"time"
)

// App config keys are a closed set; unknown keys are rejected so the table
// doesn't turn into an open-ended dictionary.
const (
	KeyLastSyncAttempt = "last_sync_attempt"
	KeyAccountEmail    = "account_email"
)

var knownConfigKeys = map[string]struct{}{
	KeyLastSyncAttempt: {},
	KeyAccountEmail:    {},
}

// GetConfigValue retrieves an app config value. Returns "" if unset.
func (d *DB) GetConfigValue(key string) (string, error) {
	if _, ok := knownConfigKeys[key]; !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}

	var value string
	err := d.db.QueryRow(`SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", storageErr("query app config", err)
	}
	return value, nil
}

// SetConfigValue upserts an app config value.
func (d *DB) SetConfigValue(key, value string) error {
	if _, ok := knownConfigKeys[key]; !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	_, err := d.db.Exec(
		`INSERT INTO app_config (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	if err != nil {
		return storageErr("upsert app config", err)
	}
	return nil
}

// LastSyncAttempt returns the timestamp of the last sync attempt, or the
// zero time if none has been recorded.
func (d *DB) LastSyncAttempt() (time.Time, error) {
	v, err := d.GetConfigValue(KeyLastSyncAttempt)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last sync attempt: %w", err)
	}
	return t, nil
}

// SetLastSyncAttempt records the timestamp of a sync attempt.
func (d *DB) SetLastSyncAttempt(t time.Time) error {
	return d.SetConfigValue(KeyLastSyncAttempt, t.Format(time.RFC3339Nano))
}
