// Package store provides the content-addressed research-result cache: a
// swappable put/get/list/delete capability set backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fortitude-ai/fortitude/pkg/models"
)

// Meta is the sidecar metadata document spec.md §6 attaches to every cached
// research result.
type Meta struct {
	CompletedAt       time.Time         `json:"completed_at"`
	ProcessingTimeMS  int64             `json:"processing_time_ms"`
	SourcesConsulted  []string          `json:"sources_consulted,omitempty"`
	QualityScore      float64           `json:"quality_score"`
	Tags              map[string]string `json:"tags,omitempty"`
}

// Entry pairs a cache key with its metadata, as returned by List.
type Entry struct {
	Key  string
	Meta Meta
}

// Filter narrows List to entries matching a tag's value; an empty Filter
// matches everything.
type Filter struct {
	TagKey   string
	TagValue string
}

// Pagination bounds a List call.
type Pagination struct {
	Limit  int
	Offset int
}

// Store is a SQLite-backed content-addressed blob cache.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite supports a single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	if currentVersion < 1 {
		if err := s.runMigration001(); err != nil {
			return fmt.Errorf("run migration 001: %w", err)
		}
	}
	return nil
}

// runMigration001 creates the result-cache schema: one row per cache key,
// the blob plus its sidecar metadata (§6).
func (s *Store) runMigration001() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS research_results (
			cache_key TEXT PRIMARY KEY,
			blob BLOB NOT NULL,
			completed_at TEXT NOT NULL,
			processing_time_ms INTEGER NOT NULL DEFAULT 0,
			sources_consulted TEXT,
			quality_score REAL NOT NULL DEFAULT 0,
			tags TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_results_quality ON research_results(quality_score)`)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (1)"); err != nil {
		return err
	}
	return tx.Commit()
}

// Put stores a blob under key, overwriting any existing entry for that key —
// cache keys are content-addressed (internal/cachekey), so a collision means
// identical (content, options), and the newer write is a harmless no-op
// in effect.
func (s *Store) Put(ctx context.Context, key string, blob []byte, meta Meta) error {
	sources, err := json.Marshal(meta.SourcesConsulted)
	if err != nil {
		return fmt.Errorf("marshal sources_consulted: %w", err)
	}
	tags, err := json.Marshal(meta.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO research_results (cache_key, blob, completed_at, processing_time_ms, sources_consulted, quality_score, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			blob = excluded.blob,
			completed_at = excluded.completed_at,
			processing_time_ms = excluded.processing_time_ms,
			sources_consulted = excluded.sources_consulted,
			quality_score = excluded.quality_score,
			tags = excluded.tags
	`, key, blob, meta.CompletedAt.UTC().Format(time.RFC3339), meta.ProcessingTimeMS, string(sources), meta.QualityScore, string(tags))
	if err != nil {
		return fmt.Errorf("put result: %w", err)
	}
	return nil
}

// Get fetches a blob and its metadata by key. A miss returns a
// models.Error with code ErrNotFound, per spec.md §7's "StorageNotFound"
// error kind.
func (s *Store) Get(ctx context.Context, key string) ([]byte, *Meta, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT blob, completed_at, processing_time_ms, sources_consulted, quality_score, tags
		FROM research_results WHERE cache_key = ?
	`, key)

	var (
		blob                           []byte
		completedAt, sources, tags     string
		processingTimeMS               int64
		qualityScore                   float64
	)
	if err := row.Scan(&blob, &completedAt, &processingTimeMS, &sources, &qualityScore, &tags); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, models.NewError(models.ErrNotFound, "cache entry not found").WithDetails("key", key)
		}
		return nil, nil, fmt.Errorf("get result: %w", err)
	}

	meta, err := decodeMeta(completedAt, processingTimeMS, sources, qualityScore, tags)
	if err != nil {
		return nil, nil, err
	}
	return blob, meta, nil
}

// List returns cache entries matching filter, newest first, bounded by
// pagination.
func (s *Store) List(ctx context.Context, filter Filter, page Pagination) ([]Entry, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, completed_at, processing_time_ms, sources_consulted, quality_score, tags
		FROM research_results
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			key, completedAt, sources, tags string
			processingTimeMS                int64
			qualityScore                    float64
		)
		if err := rows.Scan(&key, &completedAt, &processingTimeMS, &sources, &qualityScore, &tags); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		meta, err := decodeMeta(completedAt, processingTimeMS, sources, qualityScore, tags)
		if err != nil {
			return nil, err
		}
		if filter.TagKey != "" && meta.Tags[filter.TagKey] != filter.TagValue {
			continue
		}
		entries = append(entries, Entry{Key: key, Meta: *meta})
	}
	return entries, rows.Err()
}

// Delete removes a cache entry. Deleting an already-absent key is not an
// error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM research_results WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}

func decodeMeta(completedAt string, processingTimeMS int64, sources string, qualityScore float64, tags string) (*Meta, error) {
	completed, err := time.Parse(time.RFC3339, completedAt)
	if err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	var sourcesConsulted []string
	if sources != "" {
		if err := json.Unmarshal([]byte(sources), &sourcesConsulted); err != nil {
			return nil, fmt.Errorf("unmarshal sources_consulted: %w", err)
		}
	}

	var tagMap map[string]string
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &tagMap); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}

	return &Meta{
		CompletedAt:      completed,
		ProcessingTimeMS: processingTimeMS,
		SourcesConsulted: sourcesConsulted,
		QualityScore:     qualityScore,
		Tags:             tagMap,
	}, nil
}
