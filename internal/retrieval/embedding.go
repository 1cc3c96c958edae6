// Package retrieval implements hybrid retrieval (§4.3): an embedding
// service backed by Ollama, a bounded LRU+TTL cache over it, an FTS5
// keyword index, a Qdrant vector store, and the RRF/WeightedSum fusion
// that combines them.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/observability"
)

// maxEmbeddingTextLength truncates overlong inputs before embedding, per
// §4.3's preprocessing step.
const maxEmbeddingTextLength = 8192

// EmbeddingService generates vector embeddings via Ollama, adapted from
// internal/kb/embeddings.go's batch-embedding pattern.
type EmbeddingService struct {
	client    *api.Client
	model     string
	dimension int
	batchSize int
	logger    zerolog.Logger

	mu    sync.RWMutex
	ready bool
}

// NewEmbeddingService creates an embedding service against a local or
// remote Ollama daemon.
func NewEmbeddingService(cfg config.EmbeddingConfig) (*EmbeddingService, error) {
	endpoint, err := url.Parse(cfg.OllamaHost)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}
	return &EmbeddingService{
		client:    api.NewClient(endpoint, http.DefaultClient),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		logger:    observability.Logger("retrieval.embedding"),
	}, nil
}

// EnsureModel pulls the embedding model if it is not already present.
func (svc *EmbeddingService) EnsureModel(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.ready {
		return nil
	}

	if _, err := svc.client.Show(ctx, &api.ShowRequest{Model: svc.model}); err == nil {
		svc.ready = true
		return nil
	}

	svc.logger.Info().Str("model", svc.model).Msg("pulling embedding model")
	pullReq := &api.PullRequest{Model: svc.model}
	progressFn := func(resp api.ProgressResponse) error { return nil }
	if err := svc.client.Pull(ctx, pullReq, progressFn); err != nil {
		return fmt.Errorf("pull embedding model %s: %w", svc.model, err)
	}
	svc.ready = true
	return nil
}

// Embed generates a single, preprocessed, L2-normalized embedding.
func (svc *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := svc.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in parallel, bounded
// by batchSize concurrent requests.
func (svc *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := svc.EnsureModel(ctx); err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	sem := make(chan struct{}, svc.batchSize)

	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, txt string) {
			defer wg.Done()
			defer func() { <-sem }()
			v, err := svc.embedSingle(ctx, preprocess(txt))
			if err != nil {
				errs[idx] = err
				return
			}
			vecs[idx] = l2Normalize(v)
		}(i, text)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
	}
	return vecs, nil
}

func (svc *EmbeddingService) embedSingle(ctx context.Context, text string) ([]float32, error) {
	resp, err := svc.client.Embed(ctx, &api.EmbedRequest{Model: svc.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings in response")
	}
	out := make([]float32, len(resp.Embeddings[0]))
	for i, v := range resp.Embeddings[0] {
		out[i] = float32(v)
	}
	return out, nil
}

func (svc *EmbeddingService) Dimension() int { return svc.dimension }
func (svc *EmbeddingService) Model() string  { return svc.model }

// HealthCheck confirms the embedding model responds with the configured
// dimension.
func (svc *EmbeddingService) HealthCheck(ctx context.Context) error {
	v, err := svc.Embed(ctx, "health check")
	if err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	if len(v) != svc.dimension {
		return fmt.Errorf("unexpected embedding dimension: got %d want %d", len(v), svc.dimension)
	}
	return nil
}

// preprocess lowercases, normalizes whitespace, strips non-printable
// characters, and truncates to maxEmbeddingTextLength, per §4.3.
func preprocess(text string) string {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	if len(text) > maxEmbeddingTextLength {
		text = text[:maxEmbeddingTextLength]
	}
	return text
}

// l2Normalize scales a vector to unit length so cosine similarity and dot
// product agree, per §4.3's "vectors are L2-normalized" requirement.
func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * norm
	}
	return out
}
