package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

func documentFrom(content, source string, metadata map[string]string, embedding []float32) models.VectorDocument {
	return models.VectorDocument{
		ID:        uuid.NewString(),
		Content:   content,
		Embedding: embedding,
		Source:    source,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// Service bundles the embedding, keyword, and vector backends plus the
// fusion operators into the single dependency the research engine needs.
type Service struct {
	*Retriever

	embedding *EmbeddingService
	cached    *CachedEmbeddingService
	vectors   *VectorStore
	keywords  *KeywordIndex
}

// NewService constructs the full retrieval stack from config: an Ollama
// embedding service behind a bounded LRU+TTL cache, a Qdrant vector
// store, and a SQLite FTS5 keyword index.
func NewService(cfg config.RetrievalConfig) (*Service, error) {
	embed, err := NewEmbeddingService(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	cached := NewCachedEmbeddingService(embed, cfg.Embedding)

	vectors, err := NewVectorStore(cfg.Qdrant, cfg.Embedding.Dimension)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	keywords, err := OpenKeywordIndex(cfg.Keyword.DatabasePath)
	if err != nil {
		vectors.Close()
		return nil, fmt.Errorf("keyword index: %w", err)
	}

	return &Service{
		Retriever: NewRetriever(cached, vectors, keywords, cfg),
		embedding: embed,
		cached:    cached,
		vectors:   vectors,
		keywords:  keywords,
	}, nil
}

// Index embeds and stores a document in both the vector store and the
// keyword index, so it becomes discoverable by hybrid_search.
func (s *Service) Index(ctx context.Context, content, source string, metadata map[string]string) error {
	vec, err := s.cached.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}

	doc := documentFrom(content, source, metadata, vec)
	if err := s.vectors.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	if err := s.keywords.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("upsert keyword: %w", err)
	}
	return nil
}

// HealthCheck verifies the embedding service and the vector store are
// reachable; the keyword index is not checked.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.embedding.HealthCheck(ctx); err != nil {
		return err
	}
	return s.vectors.HealthCheck(ctx)
}

// Close releases the vector store and keyword index connections.
func (s *Service) Close() error {
	var firstErr error
	if err := s.vectors.Close(); err != nil {
		firstErr = err
	}
	if err := s.keywords.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
