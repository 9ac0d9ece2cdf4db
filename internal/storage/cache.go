package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// GetAnalysisBlob returns the cached blob for key, or found=false when the
// key is absent or expired. Expired rows are deleted on read.
func (db *DB) GetAnalysisBlob(key string) ([]byte, bool, error) {
	return db.getBlob("analysis_cache", key)
}

// SetAnalysisBlob stores a blob for key with the given TTL.
func (db *DB) SetAnalysisBlob(key, path string, value []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT OR REPLACE INTO analysis_cache (key, path, value, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, key, path, value, now.Add(ttl).Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set analysis cache: %w", err)
	}
	return nil
}

// GetBatchBlob returns the cached batch result blob for key.
func (db *DB) GetBatchBlob(key string) ([]byte, bool, error) {
	return db.getBlob("batch_cache", key)
}

// SetBatchBlob stores a batch result blob for key with the given TTL.
func (db *DB) SetBatchBlob(key string, value []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT OR REPLACE INTO batch_cache (key, value, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, key, value, now.Add(ttl).Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set batch cache: %w", err)
	}
	return nil
}

// getBlob reads one cache row. table is always one of the fixed cache table
// names above, never caller input.
func (db *DB) getBlob(table, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt string

	err := db.QueryRow(
		"SELECT value, expires_at FROM "+table+" WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, false, fmt.Errorf("invalid expires_at format: %w", err)
	}
	if time.Now().After(expiry) {
		_, _ = db.Exec("DELETE FROM "+table+" WHERE key = ?", key)
		return nil, false, nil
	}

	return value, true, nil
}

// PruneExpired removes all expired cache rows.
func (db *DB) PruneExpired() error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, table := range []string{"analysis_cache", "batch_cache"} {
		if _, err := db.Exec("DELETE FROM "+table+" WHERE expires_at < ?", now); err != nil {
			return err
		}
	}
	return nil
}
