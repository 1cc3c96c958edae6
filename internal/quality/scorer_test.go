package quality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

func testQualityConfig() config.QualityConfig {
	return config.QualityConfig{
		Weights: map[string]float64{
			"relevance": 0.25, "accuracy": 0.20, "completeness": 0.15,
			"clarity": 0.15, "credibility": 0.10, "timeliness": 0.05, "specificity": 0.10,
		},
		PerformanceBudgetMS:    100,
		PerformanceBudgetBytes: 10 * 1024 * 1024,
		EnableCrossValidation:  true,
		AnomalyThreshold:       0.3,
	}
}

func TestNewScorer_RejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := testQualityConfig()
	cfg.Weights["relevance"] = 0.9
	_, err := NewScorer(cfg)
	require.Error(t, err)

	var fortitudeErr *models.Error
	require.ErrorAs(t, err, &fortitudeErr)
	assert.Equal(t, models.ErrValidationFailed, fortitudeErr.Code)
}

func TestScorer_Evaluate_ReturnsValidCompositeAndConfidence(t *testing.T) {
	scorer, err := NewScorer(testQualityConfig())
	require.NoError(t, err)

	score, err := scorer.Evaluate(context.Background(), "What is artificial intelligence?",
		"Artificial intelligence is a field of computer science focused on building systems that perform tasks requiring human-like reasoning. These systems use algorithms and data to learn and make decisions.",
		Context{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, score.Composite, 0.0)
	assert.LessOrEqual(t, score.Composite, 1.0)
	assert.GreaterOrEqual(t, score.Confidence, 0.0)
	assert.LessOrEqual(t, score.Confidence, 1.0)
	assert.Greater(t, score.Relevance, 0.0)
}

func TestScorer_Evaluate_RejectsEmptyInput(t *testing.T) {
	scorer, err := NewScorer(testQualityConfig())
	require.NoError(t, err)

	_, err = scorer.Evaluate(context.Background(), "", "valid response", Context{})
	require.Error(t, err)

	_, err = scorer.Evaluate(context.Background(), "valid query", "", Context{})
	require.Error(t, err)
}

func TestScorer_Score_ConcatenatesAnswerEvidenceImplementation(t *testing.T) {
	scorer, err := NewScorer(testQualityConfig())
	require.NoError(t, err)

	result := models.ResearchResult{
		Query:          "how do goroutines communicate",
		Answer:         "Goroutines communicate over channels.",
		Evidence:       "The Go spec documents channel semantics.",
		Implementation: "ch := make(chan int); ch <- 1",
	}
	score, err := scorer.Score(context.Background(), result)
	require.NoError(t, err)
	assert.NotNil(t, score)
}

func TestComposite_WeightsSumToExpectedComposite(t *testing.T) {
	scorer, err := NewScorer(testQualityConfig())
	require.NoError(t, err)

	score := &models.QualityScore{
		Relevance: 1, Accuracy: 1, Completeness: 1, Clarity: 1,
		Credibility: 1, Timeliness: 1, Specificity: 1,
	}
	assert.InDelta(t, 1.0, scorer.composite(score), 1e-9)
}

func TestConfidence_IdenticalDimensionsYieldsMaxConfidence(t *testing.T) {
	score := &models.QualityScore{
		Relevance: 0.7, Accuracy: 0.7, Completeness: 0.7, Clarity: 0.7,
		Credibility: 0.7, Timeliness: 0.7, Specificity: 0.7,
	}
	assert.InDelta(t, 1.0, confidence(score), 1e-9)
}

func TestConfidence_SpreadDimensionsLowersConfidence(t *testing.T) {
	score := &models.QualityScore{
		Relevance: 1.0, Accuracy: 0.0, Completeness: 1.0, Clarity: 0.0,
		Credibility: 1.0, Timeliness: 0.0, Specificity: 1.0,
	}
	assert.Less(t, confidence(score), 1.0)
}
