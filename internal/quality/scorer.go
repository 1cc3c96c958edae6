// Package quality implements the quality scorer (§4.5): seven dimension
// algorithms, a weighted composite and confidence calculation, a hard
// real-time performance guard, and an optional cross-provider agreement
// check.
package quality

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

const weightSumTolerance = 1e-3

// Context carries the optional domain/audience hints a caller can attach
// to an evaluation; currently advisory only (no dimension algorithm reads
// it yet), mirroring the Rust QualityContext's placeholder metadata role.
type Context struct {
	Domain   string
	Audience string
}

// FeatureVector names raw scoring signals (dimension sub-signals prefixed
// by dimension, plus input lengths) for downstream feedback learning (§4.6).
type FeatureVector map[string]float64

// Scorer computes QualityScores under a configurable composite weight
// table, enforcing the <100ms evaluation time budget from spec.md §4.5.
// Memory use is not measured, so no memory budget is enforced.
type Scorer struct {
	cfg config.QualityConfig
}

// NewScorer validates the configured composite weights sum to 1 (within
// tolerance) and constructs a Scorer.
func NewScorer(cfg config.QualityConfig) (*Scorer, error) {
	var sum float64
	for _, w := range cfg.Weights {
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return nil, models.NewError(models.ErrValidationFailed, fmt.Sprintf("quality weights must sum to 1.0 (tolerance %.0e), got %f", weightSumTolerance, sum))
	}
	return &Scorer{cfg: cfg}, nil
}

// Evaluate scores a (query, response) pair across all seven dimensions,
// enforcing the <100ms evaluation budget from spec.md §4.5.
func (s *Scorer) Evaluate(ctx context.Context, query, response string, qctx Context) (*models.QualityScore, error) {
	if query == "" || response == "" {
		return nil, models.NewError(models.ErrBadRequest, "quality evaluation requires a non-empty query and response")
	}

	start := time.Now()

	score := &models.QualityScore{
		Relevance:     relevance(query, response),
		Accuracy:      accuracy(response),
		Completeness:  completeness(response),
		Clarity:       clarity(response),
		Credibility:   credibility(response),
		Timeliness:    timeliness(response),
		Specificity:   specificity(response),
	}
	score.Confidence = confidence(score)
	score.Composite = s.composite(score)

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		return nil, models.NewError(models.ErrPerformanceBudget, fmt.Sprintf("quality evaluation took %s, exceeding the 100ms budget", elapsed))
	}
	return score, nil
}

// Score implements internal/research's QualityValidator interface,
// evaluating a completed ResearchResult's Answer, Evidence, and
// Implementation (joined by newlines) against its Query.
func (s *Scorer) Score(ctx context.Context, result models.ResearchResult) (*models.QualityScore, error) {
	body := result.Answer
	if result.Evidence != "" {
		body += "\n" + result.Evidence
	}
	if result.Implementation != "" {
		body += "\n" + result.Implementation
	}
	return s.Evaluate(ctx, result.Query, body, Context{})
}

// ExtractFeatures returns the relevance and accuracy sub-signals behind a
// QualityScore, prefixed by dimension, plus the raw query and response
// lengths, for §4.6's feature vector. The other five dimensions contribute
// no entries.
func ExtractFeatures(query, response string) FeatureVector {
	return FeatureVector{
		"relevance_semantic_overlap":  semanticOverlap(query, response),
		"relevance_keyword_coverage":  keywordCoverage(query, response),
		"relevance_topic_coherence":   topicCoherence(query, response),
		"accuracy_uncertainty":        uncertaintyDensity(response),
		"accuracy_consistency":       consistency(response),
		"accuracy_citation_density":  citationDensity(response),
		"query_length":                float64(len(query)),
		"response_length":             float64(len(response)),
	}
}

// composite applies the configured per-dimension weights: composite =
// Σ wᵢ·dimᵢ.
func (s *Scorer) composite(score *models.QualityScore) float64 {
	dims := map[string]float64{
		"relevance":    score.Relevance,
		"accuracy":     score.Accuracy,
		"completeness": score.Completeness,
		"clarity":      score.Clarity,
		"credibility":  score.Credibility,
		"timeliness":   score.Timeliness,
		"specificity":  score.Specificity,
	}
	var total float64
	for name, value := range dims {
		total += s.cfg.Weights[name] * value
	}
	return clamp01(total)
}

// confidence is 1 − stdev(dims), clamped to [0,1]: tighter agreement
// across dimensions implies a more reliable composite.
func confidence(score *models.QualityScore) float64 {
	dims := []float64{
		score.Relevance, score.Accuracy, score.Completeness, score.Clarity,
		score.Credibility, score.Timeliness, score.Specificity,
	}
	mean := 0.0
	for _, d := range dims {
		mean += d
	}
	mean /= float64(len(dims))

	var variance float64
	for _, d := range dims {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(dims))

	return clamp01(1.0 - math.Sqrt(variance))
}

// Logger is provided for components that want to log quality events
// (anomaly detection, threshold breaches) with the package's own
// component name, matching the rest of the new code's observability use.
var Logger = observability.Logger("quality.scorer")
