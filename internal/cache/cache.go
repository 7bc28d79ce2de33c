// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists provider lookup results under human-readable keys
// and expires them by age. Stores are safe for concurrent use; writes to the
// same key are last-writer-wins.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/paper-engine/pkg/types"
)

// DefaultTTL is the usable lifetime of an entry when none is configured.
const DefaultTTL = 24 * time.Hour

// maxSlugRunes bounds the readable prefix of a key.
const maxSlugRunes = 60

// Entry is one cached payload. Entries are never mutated, only superseded by
// a later Put or removed by Purge.
type Entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	TTL       time.Duration   `json:"ttl"`
}

// Decode unmarshals the payload into v.
func (e Entry) Decode(v any) error {
	return json.Unmarshal(e.Value, v)
}

// IsExpired reports whether e is no longer usable at now. An entry whose age
// equals its TTL is expired.
func IsExpired(e Entry, now time.Time) bool {
	return now.Sub(e.CreatedAt) >= e.TTL
}

// PurgeMode selects which entries Purge removes.
type PurgeMode string

const (
	PurgeExpired PurgeMode = "expired"
	PurgeAll     PurgeMode = "all"
)

// Store is a keyed, expiring cache. Get treats expired entries as absent
// without deleting them; deletion only happens through Purge.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	Purge(ctx context.Context, mode PurgeMode) (int, error)
	Close() error
}

// Key derives a deterministic, readable key from a query: a lowercase slug of
// word characters joined by underscores, truncated, followed by the first 8
// hex digits of the MD5 of the unmodified query.
func Key(query string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	slug := strings.Join(strings.Fields(b.String()), "_")
	if runes := []rune(slug); len(runes) > maxSlugRunes {
		slug = string(runes[:maxSlugRunes])
	}

	sum := md5.Sum([]byte(query))
	return slug + "_" + hex.EncodeToString(sum[:])[:8]
}

// ParsePurgeMode validates a purge mode string.
func ParsePurgeMode(s string) (PurgeMode, error) {
	switch PurgeMode(s) {
	case PurgeExpired, PurgeAll:
		return PurgeMode(s), nil
	default:
		return "", fmt.Errorf("unknown purge mode %q (want %q or %q)", s, PurgeExpired, PurgeAll)
	}
}

// Open builds the store selected by cfg.
func Open(cfg types.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case types.CacheMemory:
		return NewMemoryStore(), nil
	case types.CacheSQLite:
		return NewSQLiteStore(cfg.Dir)
	case types.CacheFile, "":
		return NewFileStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func newEntry(key string, value any, ttl time.Duration, now time.Time) (Entry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding cache value for %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Entry{Key: key, Value: raw, CreatedAt: now, TTL: ttl}, nil
}
