package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/fortitude-ai/fortitude/internal/config"
)

// KeyStrategy names the cache-key derivation strategies §4.3 requires:
// Hash (full content hash), LengthHash (hash salted with input length, so
// two distinct-length inputs never collide), and PrefixHash(n) (hash of
// only the first n runes, for workloads where a common prefix implies a
// common embedding).
type KeyStrategy string

const (
	KeyStrategyHash       KeyStrategy = "hash"
	KeyStrategyLengthHash KeyStrategy = "length_hash"
	KeyStrategyPrefixHash KeyStrategy = "prefix_hash"
)

// CacheMetrics is the embedding cache's hit/miss/generation counters,
// metered per §4.3's cache discipline ("total_generated counts unique
// generations, not hits").
type CacheMetrics struct {
	Hits          int64
	Misses        int64
	TotalGenerated int64
}

// embedder is the subset of EmbeddingService that CachedEmbeddingService
// needs, mirroring the corpus's Embedder interface so the cache
// layer can be exercised against a test double instead of a live Ollama
// daemon.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// CachedEmbeddingService wraps an embedder with a bounded, TTL-expiring
// cache, adapted from the CachedEmbedder pattern of using an LRU in front
// of an Embedder, generalized with a TTL eviction clock and a choice of
// key-derivation strategy.
type CachedEmbeddingService struct {
	inner    embedder
	cache    *expirable.LRU[string, []float32]
	strategy KeyStrategy
	prefixN  int
	model    string

	hits, misses, generated int64
}

// NewCachedEmbeddingService builds the cache described by cfg over inner.
func NewCachedEmbeddingService(inner embedder, cfg config.EmbeddingConfig) *CachedEmbeddingService {
	size := cfg.CacheSize
	if size <= 0 {
		size = 1000
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	strategy := KeyStrategy(cfg.KeyStrategy)
	if strategy == "" {
		strategy = KeyStrategyHash
	}

	return &CachedEmbeddingService{
		inner:    inner,
		cache:    expirable.NewLRU[string, []float32](size, nil, ttl),
		strategy: strategy,
		prefixN:  64,
		model:    inner.Model(),
	}
}

// Embed returns the cached embedding when present, otherwise computes and
// caches it. Misses are the only path that increments TotalGenerated.
func (c *CachedEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		atomic.AddInt64(&c.hits, 1)
		return v, nil
	}
	atomic.AddInt64(&c.misses, 1)

	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&c.generated, 1)
	c.cache.Add(key, v)
	return v, nil
}

// EmbedBatch checks the cache per-text so partial hits still avoid
// recomputation, then embeds the remaining misses in one batch call.
func (c *CachedEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := c.cacheKey(text)
		if v, ok := c.cache.Get(key); ok {
			atomic.AddInt64(&c.hits, 1)
			results[i] = v
			continue
		}
		atomic.AddInt64(&c.misses, 1)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		results[idx] = vecs[j]
		atomic.AddInt64(&c.generated, 1)
		c.cache.Add(c.cacheKey(texts[idx]), vecs[j])
	}
	return results, nil
}

func (c *CachedEmbeddingService) Dimension() int { return c.inner.Dimension() }

// Metrics reports the cache's running hit/miss/generation counters.
func (c *CachedEmbeddingService) Metrics() CacheMetrics {
	return CacheMetrics{
		Hits:           atomic.LoadInt64(&c.hits),
		Misses:         atomic.LoadInt64(&c.misses),
		TotalGenerated: atomic.LoadInt64(&c.generated),
	}
}

func (c *CachedEmbeddingService) cacheKey(text string) string {
	input := text
	switch c.strategy {
	case KeyStrategyLengthHash:
		input = text
	case KeyStrategyPrefixHash:
		r := []rune(text)
		if len(r) > c.prefixN {
			r = r[:c.prefixN]
		}
		input = string(r)
	}

	sum := sha256.Sum256([]byte(input + "\x00" + c.model))
	key := hex.EncodeToString(sum[:])
	if c.strategy == KeyStrategyLengthHash {
		key = key + ":" + strconv.Itoa(len(text))
	}
	return key
}
