package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Tzeak/obsidian-autojournal/journal"
)

const schema = `
CREATE TABLE IF NOT EXISTS summaries (
    key        TEXT PRIMARY KEY,
    backend    TEXT NOT NULL,
    summary    TEXT NOT NULL,
    run_id     TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`

// Cache stores conversation summaries keyed by backend and content, so re-running a day does not pay for
// conversations that were already summarized.
type Cache struct {
	db *sql.DB
}

// Entry is one cached summary.
type Entry struct {
	Key       string
	Backend   string
	Summary   string
	RunID     string
	CreatedAt time.Time
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if path == "" {
		return nil, errors.New("cache.Open: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache.Open: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache.Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache.Open: init schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key identifies a summary of content produced by backend.
func Key(backend, content string) string {
	h := sha256.New()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached summary for key.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var summary string
	err := c.db.QueryRowContext(ctx, "SELECT summary FROM summaries WHERE key = ?", key).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache.Get: %w", err)
	}
	return summary, true, nil
}

// Put stores e, replacing any entry with the same key.
func (c *Cache) Put(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO summaries (key, backend, summary, run_id, created_at) VALUES (?, ?, ?, ?, ?)",
		e.Key, e.Backend, e.Summary, e.RunID, e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache.Put: %w", err)
	}
	return nil
}

// Len returns the number of cached summaries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM summaries").Scan(&n); err != nil {
		return 0, fmt.Errorf("cache.Len: %w", err)
	}
	return n, nil
}

// Prune deletes entries created before cutoff and returns how many were removed.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM summaries WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("cache.Prune: %w", err)
	}
	return res.RowsAffected()
}

// Summarizer serves summaries from a Cache and falls through to the wrapped summarizer on a miss.
type Summarizer struct {
	inner  journal.Summarizer
	cache  *Cache
	runID  string
	logger *slog.Logger
}

// Wrap returns a caching Summarizer. Each Wrap starts a new run id, recorded with the entries it writes.
func Wrap(inner journal.Summarizer, c *Cache, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	runID := uuid.NewString()
	return &Summarizer{inner: inner, cache: c, runID: runID, logger: logger.With("run_id", runID)}
}

// RunID identifies this run in cache rows and log lines.
func (s *Summarizer) RunID() string { return s.runID }

// Info implements journal.Summarizer.
func (s *Summarizer) Info() string { return s.inner.Info() }

// Summarize implements journal.Summarizer. Cache read and write failures are logged and do not fail the
// summary.
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	backend := s.inner.Info()
	key := Key(backend, content)

	summary, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("summary cache read failed", "err", err)
	} else if ok {
		s.logger.Debug("summary cache hit", "key", key[:12])
		return summary, nil
	}

	summary, err = s.inner.Summarize(ctx, content)
	if err != nil {
		return "", err
	}
	if err := s.cache.Put(ctx, Entry{Key: key, Backend: backend, Summary: summary, RunID: s.runID}); err != nil {
		s.logger.Warn("summary cache write failed", "err", err)
	}
	return summary, nil
}
