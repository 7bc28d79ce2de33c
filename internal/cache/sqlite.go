// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "cache.db"

// SQLiteStore keeps entries in a single SQLite table. WAL mode lets readers
// proceed while a writer holds the lock; upserts make Put last-writer-wins.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates dir/cache.db and its schema.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if dir == "" {
		dir = "cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return openSQLite(filepath.Join(dir, dbFile) + "?_journal_mode=WAL&_busy_timeout=5000")
}

func openSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			ttl INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_expiry ON entries(created_at, ttl)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the entry for key if it exists and has not expired.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		value     string
		createdAt int64
		ttl       int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, created_at, ttl FROM entries WHERE key = ?`, key,
	).Scan(&value, &createdAt, &ttl)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("querying cache entry %s: %w", key, err)
	}

	e := Entry{
		Key:       key,
		Value:     []byte(value),
		CreatedAt: time.Unix(0, createdAt),
		TTL:       time.Duration(ttl),
	}
	if IsExpired(e, s.now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put upserts value under key.
func (s *SQLiteStore) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	e, err := newEntry(key, value, ttl, s.now())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (key, value, created_at, ttl) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			ttl = excluded.ttl`,
		e.Key, string(e.Value), e.CreatedAt.UnixNano(), int64(e.TTL),
	)
	if err != nil {
		return fmt.Errorf("upserting cache entry %s: %w", key, err)
	}
	return nil
}

// Purge deletes expired entries, or every entry when mode is PurgeAll.
func (s *SQLiteStore) Purge(ctx context.Context, mode PurgeMode) (int, error) {
	var (
		res sql.Result
		err error
	)
	if mode == PurgeAll {
		res, err = s.db.ExecContext(ctx, `DELETE FROM entries`)
	} else {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM entries WHERE created_at + ttl <= ?`, s.now().UnixNano())
	}
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged entries: %w", err)
	}
	return int(n), nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
