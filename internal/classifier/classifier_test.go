package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

func newTestClassifier() *Classifier {
	return New(config.ClassifierConfig{
		FallbackConfidenceCap: 0.5,
		MinConfidence:         0.3,
		FoldDiacritics:        true,
	})
}

// TestClassify_BeginnerRustLearning mirrors the "Beginner Rust Learning"
// fixture from classification_test_fixtures.rs and spec.md §8 scenario 1.
func TestClassify_BeginnerRustLearning(t *testing.T) {
	c := newTestClassifier()

	result, err := c.Classify(models.ClassifiedRequest{
		Query: "What is ownership in Rust? I'm new to the language and just started learning the basics.",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ResearchLearning, result.ResearchType)
	assert.Equal(t, models.AudienceBeginner, result.AudienceLevel)
	assert.Equal(t, models.DomainRust, result.TechnicalDomain)
	assert.False(t, result.FallbackUsed)
	assert.Greater(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestClassify_CriticalOutage(t *testing.T) {
	c := newTestClassifier()

	result, err := c.Classify(models.ClassifiedRequest{
		Query: "URGENT: production is down with a panic in the payment service, need to fix this ASAP",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ResearchTroubleshooting, result.ResearchType)
	assert.Equal(t, models.UrgencyImmediate, result.Urgency)
	assert.False(t, result.FallbackUsed)
}

// TestClassify_CriticalOutageWeb mirrors spec.md §8 scenario 2: a
// troubleshooting query naming a web stack must detect domain=Web at
// urgency=Immediate.
func TestClassify_CriticalOutageWeb(t *testing.T) {
	c := newTestClassifier()

	result, err := c.Classify(models.ClassifiedRequest{
		Query: "URGENT: Our production React application is crashing, the REST API is failing and users can't access critical features",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ResearchTroubleshooting, result.ResearchType)
	assert.Equal(t, models.UrgencyImmediate, result.Urgency)
	assert.Equal(t, models.DomainWeb, result.TechnicalDomain)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
}

// TestClassify_DomainDefaultsToGeneral covers the domain dimension's
// fallback policy: an ambiguous query falls back to DomainGeneral rather
// than leaving the field empty.
func TestClassify_DomainDefaultsToGeneral(t *testing.T) {
	c := newTestClassifier()

	result, err := c.Classify(models.ClassifiedRequest{
		Query: "What is the best way to review my pull request?",
	})
	require.NoError(t, err)

	assert.Equal(t, models.DomainGeneral, result.TechnicalDomain)
}

// TestClassify_FallbackDefaultsComeFromResearchType covers the
// research-type-driven default policy: a Learning query with no urgency
// keyword must default to Exploratory (not the fixed Planned default), and
// a Troubleshooting query with no audience keyword must default to
// Intermediate.
func TestClassify_FallbackDefaultsComeFromResearchType(t *testing.T) {
	c := newTestClassifier()

	learning, err := c.Classify(models.ClassifiedRequest{
		Query: "What is a closure and how does it work?",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ResearchLearning, learning.ResearchType)
	assert.Equal(t, models.UrgencyExploratory, learning.Urgency)

	troubleshooting, err := c.Classify(models.ClassifiedRequest{
		Query: "The deploy is failing with a panic, need to debug this",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ResearchTroubleshooting, troubleshooting.ResearchType)
	assert.Equal(t, models.AudienceIntermediate, troubleshooting.AudienceLevel)
}

func TestClassify_Implementation(t *testing.T) {
	c := newTestClassifier()

	result, err := c.Classify(models.ClassifiedRequest{
		Query: "How do I implement a retry with backoff in Go?",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ResearchImplementation, result.ResearchType)
}

func TestClassify_Decision(t *testing.T) {
	c := newTestClassifier()

	result, err := c.Classify(models.ClassifiedRequest{
		Query: "Should I use Postgres or Redis for a session store? Compare the trade-offs.",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ResearchDecision, result.ResearchType)
}

// TestClassify_FallbackCapsConfidence covers the invariant that when no rule
// matches, fallback_used implies confidence <= the configured cap (§8
// testable property, §9 Open Question resolution).
func TestClassify_FallbackCapsConfidence(t *testing.T) {
	c := newTestClassifier()

	result, err := c.Classify(models.ClassifiedRequest{
		Query: "zzz qux flibbertigibbet",
	})
	require.NoError(t, err)

	assert.True(t, result.FallbackUsed)
	assert.LessOrEqual(t, result.Confidence, 0.5)
	assert.Equal(t, models.ResearchLearning, result.ResearchType)
}

func TestClassify_DiacriticInsensitive(t *testing.T) {
	c := newTestClassifier()

	plain, err := c.Classify(models.ClassifiedRequest{Query: "explain how caching works"})
	require.NoError(t, err)

	accented, err := c.Classify(models.ClassifiedRequest{Query: "éxplain how caching wörks"})
	require.NoError(t, err)

	assert.Equal(t, plain.ResearchType, accented.ResearchType)
}

func TestClassify_WholeWordNotSubstring(t *testing.T) {
	c := newTestClassifier()

	// "errors" contains "error" as a substring but the word-boundary
	// matcher must not fire on unrelated words like "errorsvilletown".
	result, err := c.Classify(models.ClassifiedRequest{
		Query: "Tell me about the history of errorsvilletown",
	})
	require.NoError(t, err)

	assert.True(t, result.FallbackUsed)
}

func TestGetAllClassifications_ReturnsEveryType(t *testing.T) {
	c := newTestClassifier()

	all := c.GetAllClassifications(models.ClassifiedRequest{Query: "how do I fix this bug"})

	assert.Len(t, all, len(defaultResearchRules))
	assert.Contains(t, all, models.ResearchTroubleshooting)
}

func TestClassify_ConfidenceBounds(t *testing.T) {
	c := newTestClassifier()

	queries := []string{
		"what is a mutex",
		"implement a binary search tree",
		"fix this nil pointer panic",
		"should I use gRPC or REST",
		"review my pull request for correctness",
		"",
	}

	for _, q := range queries {
		result, err := c.Classify(models.ClassifiedRequest{Query: q})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Confidence, 0.0)
		assert.LessOrEqual(t, result.Confidence, 1.0)
	}
}
