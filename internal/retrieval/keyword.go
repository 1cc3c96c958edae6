package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// KeywordIndex provides BM25 full-text search over indexed documents,
// adapted from internal/kb/searcher.go for Fortitude's
// VectorDocument domain instead of document chunks.
type KeywordIndex struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenKeywordIndex opens (creating if necessary) the SQLite FTS5 database
// backing the keyword index.
func OpenKeywordIndex(path string) (*KeywordIndex, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	idx := &KeywordIndex{db: db, logger: observability.Logger("retrieval.keyword")}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (k *KeywordIndex) migrate() error {
	_, err := k.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			source     TEXT,
			metadata   TEXT,
			created_at TEXT
		);
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			id UNINDEXED, content, source UNINDEXED
		);
	`)
	return err
}

// Upsert indexes or reindexes a document for keyword search.
func (k *KeywordIndex) Upsert(ctx context.Context, doc models.VectorDocument) error {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, source, metadata, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET source=excluded.source, metadata=excluded.metadata
	`, doc.ID, doc.Source, string(meta), doc.CreatedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE id = ?`, doc.ID); err != nil {
		return fmt.Errorf("clear fts row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents_fts (id, content, source) VALUES (?, ?, ?)
	`, doc.ID, doc.Content, doc.Source); err != nil {
		return fmt.Errorf("insert fts row: %w", err)
	}

	return tx.Commit()
}

// Delete removes a document from the keyword index.
func (k *KeywordIndex) Delete(ctx context.Context, id string) error {
	if _, err := k.db.ExecContext(ctx, `DELETE FROM documents_fts WHERE id = ?`, id); err != nil {
		return err
	}
	_, err := k.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// KeywordHit is one BM25-scored keyword match.
type KeywordHit struct {
	Document models.VectorDocument
	Score    float64 // Normalized into [0,1], higher is more relevant.
}

// Search performs a BM25-ranked keyword search, prefix-matching the final
// query term the way searcher.go's prepareFTSQuery does.
func (k *KeywordIndex) Search(ctx context.Context, query string, limit int) ([]KeywordHit, error) {
	if limit <= 0 {
		limit = 10
	}
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := k.db.QueryContext(ctx, `
		SELECT f.id, f.content, f.source, COALESCE(d.metadata, '{}'), COALESCE(d.created_at, ''),
		       bm25(documents_fts, 1.0, 0.75) as score
		FROM documents_fts f
		LEFT JOIN documents d ON f.id = d.id
		WHERE documents_fts MATCH ?
		ORDER BY score ASC
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []KeywordHit
	var worstScore float64
	for rows.Next() {
		var doc models.VectorDocument
		var metaJSON, createdAt string
		var bm25Score float64
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Source, &metaJSON, &createdAt, &bm25Score); err != nil {
			k.logger.Warn().Err(err).Msg("scan keyword hit")
			continue
		}
		json.Unmarshal([]byte(metaJSON), &doc.Metadata)
		if createdAt != "" {
			doc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		}
		// bm25() returns more-negative for better matches; worstScore keeps
		// the most negative raw score seen, and each hit stores the negated
		// score, which normalizeScores rescales below.
		if bm25Score < worstScore {
			worstScore = bm25Score
		}
		hits = append(hits, KeywordHit{Document: doc, Score: -bm25Score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	normalizeScores(hits)
	return hits, nil
}

// normalizeScores rescales raw BM25 magnitudes into [0,1] so they can be
// combined with cosine-similarity semantic scores by WeightedSum fusion.
func normalizeScores(hits []KeywordHit) {
	if len(hits) == 0 {
		return
	}
	max := hits[0].Score
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	if max <= 0 {
		return
	}
	for i := range hits {
		hits[i].Score = hits[i].Score / max
	}
}

// prepareFTSQuery escapes FTS5 special characters and prefix-matches the
// last term, exactly as searcher.go does for multi-word
// queries.
func prepareFTSQuery(query string) string {
	query = strings.ReplaceAll(query, `"`, `""`)
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	if len(terms) == 1 {
		return terms[0] + "*"
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		if i == len(terms)-1 {
			parts[i] = t + "*"
		} else {
			parts[i] = t
		}
	}
	return strings.Join(parts, " ")
}

// Close releases the underlying database handle.
func (k *KeywordIndex) Close() error { return k.db.Close() }
