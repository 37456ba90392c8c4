package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	bserrors "github.com/brainscore/brainscore/internal/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS results (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	created_at INTEGER NOT NULL
);`

// SQLiteStore persists results in a single SQLite file, shared safely
// between processes through WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the result database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open result database: %w", err)
	}
	db.SetMaxOpenConns(1) // Single writer

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize result schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM results WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, bserrors.NewCacheError(bserrors.CodeCacheReadFailed, "sqlite read failed", err)
	}
	return data, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (key, value, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		key, data, time.Now().Unix())
	if err != nil {
		return bserrors.NewCacheError(bserrors.CodeCacheWriteFailed, "sqlite write failed", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE key = ?`, key); err != nil {
		return bserrors.NewCacheError(bserrors.CodeCacheWriteFailed, "sqlite delete failed", err)
	}
	return nil
}

// Keys scans forward from prefix in key order and stops at the first key
// outside it.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM results WHERE key >= ? ORDER BY key`, prefix)
	if err != nil {
		return nil, bserrors.NewCacheError(bserrors.CodeCacheReadFailed, "sqlite scan failed", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, bserrors.NewCacheError(bserrors.CodeCacheReadFailed, "sqlite scan failed", err)
		}
		if !strings.HasPrefix(k, prefix) {
			break
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, bserrors.NewCacheError(bserrors.CodeCacheReadFailed, "sqlite scan failed", err)
	}
	return keys, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
