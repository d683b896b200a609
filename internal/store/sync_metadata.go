package store

import (
	"database/sql"
	"time"
)

// GetSyncMetadata retrieves the sync metadata for a remote path. Returns
// nil if the entity has never completed a sync.
func (d *DB) GetSyncMetadata(remotePath string) (*SyncMetadata, error) {
	var md SyncMetadata
	var lastSync, localMod, remoteMod sql.NullTime
	err := d.db.QueryRow(
		`SELECT remote_path, remote_file_id, last_sync_time, local_last_modified, remote_last_modified
		 FROM sync_metadata WHERE remote_path = ?`,
		remotePath,
	).Scan(&md.RemotePath, &md.RemoteFileID, &lastSync, &localMod, &remoteMod)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query sync metadata", err)
	}
	if lastSync.Valid {
		md.LastSyncTime = lastSync.Time
	}
	if localMod.Valid {
		md.LocalLastModified = localMod.Time
	}
	if remoteMod.Valid {
		md.RemoteLastModified = remoteMod.Time
	}
	return &md, nil
}

// PutSyncMetadata upserts a sync metadata record.
func (d *DB) PutSyncMetadata(md SyncMetadata) error {
	_, err := d.db.Exec(
		`INSERT INTO sync_metadata (remote_path, remote_file_id, last_sync_time, local_last_modified, remote_last_modified)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(remote_path) DO UPDATE SET
		   remote_file_id = excluded.remote_file_id,
		   last_sync_time = excluded.last_sync_time,
		   local_last_modified = excluded.local_last_modified,
		   remote_last_modified = excluded.remote_last_modified`,
		md.RemotePath, md.RemoteFileID, md.LastSyncTime, md.LocalLastModified, md.RemoteLastModified,
	)
	if err != nil {
		return storageErr("upsert sync metadata", err)
	}
	return nil
}

// DeleteSyncMetadata removes the sync metadata for a remote path.
func (d *DB) DeleteSyncMetadata(remotePath string) error {
	_, err := d.db.Exec(`DELETE FROM sync_metadata WHERE remote_path = ?`, remotePath)
	if err != nil {
		return storageErr("delete sync metadata", err)
	}
	return nil
}

// upsertSyncMetadataTx writes sync metadata inside an existing transaction,
// stamping the sync time and remote modification time with now.
func upsertSyncMetadataTx(tx *sql.Tx, remotePath, remoteFileID string, localModified time.Time) error {
	now := time.Now()
	_, err := tx.Exec(
		`INSERT INTO sync_metadata (remote_path, remote_file_id, last_sync_time, local_last_modified, remote_last_modified)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(remote_path) DO UPDATE SET
		   remote_file_id = excluded.remote_file_id,
		   last_sync_time = excluded.last_sync_time,
		   local_last_modified = excluded.local_last_modified,
		   remote_last_modified = excluded.remote_last_modified`,
		remotePath, remoteFileID, now, localModified, now,
	)
	if err != nil {
		return storageErr("upsert sync metadata", err)
	}
	return nil
}
