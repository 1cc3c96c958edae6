package research

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/provider"
	"github.com/fortitude-ai/fortitude/internal/store"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// fakeQualityValidator returns a canned score so engine tests don't need
// internal/quality wired up.
type fakeQualityValidator struct {
	score *models.QualityScore
	err   error
}

func (f *fakeQualityValidator) Score(ctx context.Context, result models.ResearchResult) (*models.QualityScore, error) {
	return f.score, f.err
}

func testResearchConfig() config.ResearchConfig {
	return config.ResearchConfig{
		MaxTokens:                 1000,
		Temperature:               0.3,
		MaxProcessingTime:         5 * time.Second,
		EnableQualityValidation:   true,
		MinQualityScore:           0.5,
		EnableVectorSearch:        false, // no retrieval.Service wired in these tests
		MaxContextDocuments:       3,
		ContextRelevanceThreshold: 0.3,
	}
}

func newTestEngine(t *testing.T, mock *provider.MockProvider, quality QualityValidator) *Engine {
	t.Helper()
	return newTestEngineWithCache(t, mock, quality, nil)
}

func newTestEngineWithCache(t *testing.T, mock *provider.MockProvider, quality QualityValidator, cache *store.Store) *Engine {
	t.Helper()
	fe := provider.NewFallbackEngine(config.ProviderConfig{
		Strategy:       "priority",
		MaxRetries:     0,
		BackoffBase:    time.Millisecond,
		BackoffMax:     time.Millisecond,
		CircuitBreaker: config.CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 1, OpenTimeout: time.Second, HalfOpenMaxRequests: 1},
	})
	fe.Register(mock)
	return NewEngine(fe, nil, quality, cache, testResearchConfig())
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEngine_Research_ParsesAnswerAndScoresQuality(t *testing.T) {
	mock := provider.NewMockProvider("ollama")
	mock.Response = &provider.Response{Content: "## Answer\nUse channels.\n\n## Evidence\nstdlib docs."}
	quality := &fakeQualityValidator{score: &models.QualityScore{Composite: 0.8}}

	e := newTestEngine(t, mock, quality)
	result, err := e.Research(context.Background(), Request{
		Query:          "how do I synchronize goroutines",
		ResearchType:   models.ResearchLearning,
		AudienceLevel:  models.AudienceBeginner,
		TemplateParams: map[string]string{"concept": "channels", "level": "beginner"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Use channels.", result.Answer)
	assert.Equal(t, "stdlib docs.", result.Evidence)
	assert.Equal(t, "ollama", result.ProviderUsed)
	assert.False(t, result.FallbackUsed)
	require.NotNil(t, result.Quality)
	assert.Equal(t, 0.8, result.Quality.Composite)
	assert.NotEmpty(t, result.CorrelationID)
	assert.NotEmpty(t, result.CacheKey)
	assert.False(t, result.LowQuality)
}

// TestEngine_Research_CacheHitSkipsProvider covers §3/§6's content-addressed
// result cache: an identical request must be served from the store without
// invoking the provider a second time.
func TestEngine_Research_CacheHitSkipsProvider(t *testing.T) {
	mock := provider.NewMockProvider("ollama")
	mock.Response = &provider.Response{Content: "## Answer\nUse channels.\n"}
	cache := newTestStore(t)

	e := newTestEngineWithCache(t, mock, nil, cache)
	req := Request{
		Query:          "how do I synchronize goroutines",
		ResearchType:   models.ResearchLearning,
		AudienceLevel:  models.AudienceBeginner,
		TemplateParams: map[string]string{"concept": "channels", "level": "beginner"},
	}

	first, err := e.Research(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mock.Calls())

	second, err := e.Research(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mock.Calls(), "a cache hit must not dispatch to the provider again")
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.CacheKey, second.CacheKey)
}

// TestEngine_Research_LowQualityResultIsTagged covers §4.4's requirement
// that results below MinQualityScore are returned, tagged, not dropped.
func TestEngine_Research_LowQualityResultIsTagged(t *testing.T) {
	mock := provider.NewMockProvider("ollama")
	mock.Response = &provider.Response{Content: "## Answer\nthin answer\n"}
	quality := &fakeQualityValidator{score: &models.QualityScore{Composite: 0.1}}

	e := newTestEngine(t, mock, quality)
	result, err := e.Research(context.Background(), Request{
		Query:          "how do I synchronize goroutines",
		ResearchType:   models.ResearchLearning,
		AudienceLevel:  models.AudienceBeginner,
		TemplateParams: map[string]string{"concept": "channels", "level": "beginner"},
	})

	require.NoError(t, err)
	require.NotNil(t, result.Quality)
	assert.True(t, result.LowQuality)
}

func TestEngine_Research_MissingTemplateParam_ReturnsError(t *testing.T) {
	mock := provider.NewMockProvider("ollama")
	e := newTestEngine(t, mock, nil)

	_, err := e.Research(context.Background(), Request{
		Query:          "explain goroutines",
		ResearchType:   models.ResearchLearning,
		AudienceLevel:  models.AudienceBeginner,
		TemplateParams: map[string]string{"concept": "goroutines"}, // level missing
	})

	require.Error(t, err)
	assert.Equal(t, int64(0), mock.Calls(), "provider must not be called when the template fails to build")
}

func TestEngine_Research_NoQualityValidator_StillReturnsResult(t *testing.T) {
	mock := provider.NewMockProvider("ollama")
	e := newTestEngine(t, mock, nil)

	result, err := e.Research(context.Background(), Request{
		Query:          "describe decision tradeoffs",
		ResearchType:   models.ResearchDecision,
		AudienceLevel:  models.AudienceAdvanced,
		TemplateParams: map[string]string{"problem": "which db", "context": "read-heavy workload"},
	})

	require.NoError(t, err)
	assert.Nil(t, result.Quality)
}

func TestEngine_EstimateProcessingTime_ScalesByTypeLengthAndAudience(t *testing.T) {
	e := newTestEngine(t, provider.NewMockProvider("ollama"), nil)
	e.cfg.MaxProcessingTime = time.Minute

	short := e.estimateProcessingTime(Request{
		Query: "short", ResearchType: models.ResearchLearning, AudienceLevel: models.AudienceIntermediate,
	})
	longImplementation := e.estimateProcessingTime(Request{
		Query:         "a very long and detailed query describing an implementation task that exceeds one hundred characters in length",
		ResearchType:  models.ResearchImplementation,
		AudienceLevel: models.AudienceAdvanced,
	})

	assert.Equal(t, 10*time.Second, short)
	assert.Greater(t, longImplementation, short)
}

func TestEngine_EstimateProcessingTime_CapsAtMaxProcessingTime(t *testing.T) {
	e := newTestEngine(t, provider.NewMockProvider("ollama"), nil)
	e.cfg.MaxProcessingTime = 3 * time.Second

	estimate := e.estimateProcessingTime(Request{
		Query:         "a very long and detailed query describing an implementation task that exceeds one hundred characters in length",
		ResearchType:  models.ResearchImplementation,
		AudienceLevel: models.AudienceAdvanced,
	})

	assert.Equal(t, 3*time.Second, estimate)
}
