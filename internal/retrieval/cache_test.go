package retrieval

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortitude-ai/fortitude/internal/config"
)

// fakeEmbedder counts calls so tests can assert on cache hit/miss behavior
// without a live Ollama daemon.
type fakeEmbedder struct {
	calls int64
	dim   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt64(&f.calls, 1)
	return []float32{float32(len(text)), 1, 2}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := f.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }
func (f *fakeEmbedder) Model() string  { return "fake-model" }

func testCacheConfig() config.EmbeddingConfig {
	return config.EmbeddingConfig{CacheSize: 10, CacheTTL: time.Minute, KeyStrategy: "hash"}
}

func TestCachedEmbeddingService_MissThenHit(t *testing.T) {
	inner := &fakeEmbedder{dim: 3}
	c := NewCachedEmbeddingService(inner, testCacheConfig())

	_, err := c.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&inner.calls), "second call for the same text must hit the cache")
	m := c.Metrics()
	assert.Equal(t, int64(1), m.Hits)
	assert.Equal(t, int64(1), m.Misses)
	assert.Equal(t, int64(1), m.TotalGenerated)
}

func TestCachedEmbeddingService_DistinctTextsAreDistinctMisses(t *testing.T) {
	inner := &fakeEmbedder{dim: 3}
	c := NewCachedEmbeddingService(inner, testCacheConfig())

	_, _ = c.Embed(context.Background(), "alpha")
	_, _ = c.Embed(context.Background(), "beta")

	assert.Equal(t, int64(2), atomic.LoadInt64(&inner.calls))
	assert.Equal(t, int64(2), c.Metrics().TotalGenerated)
}

func TestCachedEmbeddingService_EmbedBatchPartialHit(t *testing.T) {
	inner := &fakeEmbedder{dim: 3}
	c := NewCachedEmbeddingService(inner, testCacheConfig())

	_, err := c.Embed(context.Background(), "cached")
	require.NoError(t, err)

	results, err := c.EmbedBatch(context.Background(), []string{"cached", "new"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(2), atomic.LoadInt64(&inner.calls), "only the uncached text should trigger a new embed call")
}

func TestCachedEmbeddingService_LengthHashStrategyDistinguishesSameHashDifferentLength(t *testing.T) {
	inner := &fakeEmbedder{dim: 3}
	cfg := testCacheConfig()
	cfg.KeyStrategy = "length_hash"
	c := NewCachedEmbeddingService(inner, cfg)

	assert.NotEqual(t, c.cacheKey("ab"), c.cacheKey("abc"))
}

func TestCachedEmbeddingService_PrefixHashStrategyCollidesOnSharedPrefix(t *testing.T) {
	inner := &fakeEmbedder{dim: 3}
	cfg := testCacheConfig()
	cfg.KeyStrategy = "prefix_hash"
	c := NewCachedEmbeddingService(inner, cfg)
	c.prefixN = 4

	assert.Equal(t, c.cacheKey("aaaa-one"), c.cacheKey("aaaa-two"), "prefix_hash should key on only the first prefixN runes")
}
