// Package store provides a SQLite-backed key-value store for small
// JSON-serializable records. The store enforces no expiry of its own;
// callers that need TTL semantics implement them on top.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists JSON text blobs keyed by string.
type Store struct {
	db *sql.DB
}

// Open opens or creates a key-value store at the given path and
// initializes the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates the kv table if it doesn't exist
func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			modified TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the raw JSON value for a key. The second return value
// reports whether the key was present.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

// Set stores a raw JSON value under a key, overwriting any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value, modified) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, modified = excluded.modified",
		key, string(value), now,
	)
	return err
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

// DeletePrefix removes every key with the given prefix.
// Returns the number of deleted entries.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key LIKE ? || '%'", prefix)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Keys returns all keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM kv WHERE key LIKE ? || '%' ORDER BY key", prefix)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}

	if keys == nil {
		keys = []string{}
	}
	return keys, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
