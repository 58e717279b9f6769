// Package clientdata provides persistent caching for market-data
// collaborator responses. Values are stored as msgpack blobs with
// expiration timestamps for cache-first behavior. The engine works
// correctly (just less efficiently) without it.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Repository provides cache operations over the price_cache table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get retrieves a cached value into dest. Returns false on miss or when
// the entry is expired (expired rows are lazily deleted).
func (r *Repository) Get(key string, dest interface{}) (bool, error) {
	var value []byte
	var expiresAt int64
	err := r.db.QueryRow("SELECT value, expires_at FROM price_cache WHERE key = ?", key).
		Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query cache: %w", err)
	}

	if expiresAt < time.Now().Unix() {
		_, _ = r.db.Exec("DELETE FROM price_cache WHERE key = ?", key)
		return false, nil
	}

	if err := msgpack.Unmarshal(value, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return true, nil
}

// Set stores a value with a TTL.
func (r *Repository) Set(key string, value interface{}, ttl time.Duration) error {
	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO price_cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, blob, time.Now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to store cache value: %w", err)
	}
	return nil
}

// Delete removes a cache entry.
func (r *Repository) Delete(key string) error {
	_, err := r.db.Exec("DELETE FROM price_cache WHERE key = ?", key)
	return err
}

// PurgeExpired removes all expired entries and returns the count removed.
func (r *Repository) PurgeExpired() (int64, error) {
	res, err := r.db.Exec("DELETE FROM price_cache WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", err)
	}
	return res.RowsAffected()
}
