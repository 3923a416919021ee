// Package cache persists processing results between runs. Entries are
// keyed by a digest of the source text plus the configuration
// fingerprint, so a change to either misses cleanly and stale results
// are never replayed.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/funvibe/solidscript/internal/render"
)

// Key digests source text and a configuration fingerprint into a cache
// key. The separator byte keeps (source, fingerprint) pairs from
// colliding across the boundary.
func Key(source, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// StageRecord is one completed stage of a cached run.
type StageRecord struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Entry is one cached run: the summaries it emitted and the stages
// that produced them.
type Entry struct {
	Key       string           `json:"-"`
	CreatedAt time.Time        `json:"-"`
	Summaries []render.Summary `json:"summaries"`
	Stages    []StageRecord    `json:"stages"`
}

// Store is a sqlite-backed result cache.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS results (
	key        TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	payload    BLOB NOT NULL
);`

// Open opens the cache database at path, creating it if needed. Use
// ":memory:" for an ephemeral cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", path, err)
	}
	// sqlite allows a single writer; one pooled connection also keeps
	// :memory: databases from resetting per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores entry under its key, replacing any previous result.
func (s *Store) Put(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Key == "" {
		return errors.New("cache entry needs a key")
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (key, created_at, payload) VALUES (?, ?, ?)`,
		entry.Key, createdAt.Unix(), payload)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Get loads the entry stored under key. The boolean reports whether
// the key was present.
func (s *Store) Get(ctx context.Context, key string) (*Entry, bool, error) {
	var createdAt int64
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, payload FROM results WHERE key = ?`, key).Scan(&createdAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cache entry: %w", err)
	}
	entry := &Entry{Key: key, CreatedAt: time.Unix(createdAt, 0)}
	if err := json.Unmarshal(payload, entry); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return entry, true, nil
}

// Delete removes the entry stored under key. Deleting an absent key is
// not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Purge removes every cached result.
func (s *Store) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	return nil
}

// Len reports how many results the cache holds.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
