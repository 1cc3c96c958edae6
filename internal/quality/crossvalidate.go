package quality

import (
	"math"

	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// SessionResult is the outcome of comparing several providers' scores for
// the same request, per spec.md §4.5's optional cross-provider layer.
type SessionResult string

const (
	SessionConsensus     SessionResult = "consensus_achieved"
	SessionDisagreement  SessionResult = "disagreement"
	SessionAnomaly       SessionResult = "anomaly"
)

// dimensionVector flattens a QualityScore into the 7-dimension vector
// pairwise agreement is computed over.
func dimensionVector(s models.QualityScore) []float64 {
	return []float64{s.Relevance, s.Accuracy, s.Completeness, s.Clarity, s.Credibility, s.Timeliness, s.Specificity}
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CrossValidate computes pairwise cosine agreement across multiple
// providers' QualityScores for a single request, classifying the session
// as consensus, disagreement, or an outright anomaly, per spec.md §4.5 and
// cfg.AnomalyThreshold/EnableCrossValidation. Anomalies are logged as
// structured events for the alert stream; CrossValidate is advisory and
// never returns an error that would block the caller's research result
// (SPEC_FULL.md §5, Open Question resolution).
func (s *Scorer) CrossValidate(scores map[string]models.QualityScore) (SessionResult, float64) {
	if !s.cfg.EnableCrossValidation || len(scores) < 2 {
		return SessionConsensus, 1.0
	}

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}

	var minAgreement float64 = 1.0
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			agreement := cosineSimilarity(dimensionVector(scores[names[i]]), dimensionVector(scores[names[j]]))
			if agreement < minAgreement {
				minAgreement = agreement
			}
		}
	}

	result := SessionConsensus
	switch {
	case minAgreement < s.cfg.AnomalyThreshold:
		result = SessionAnomaly
	case minAgreement < 1.0-s.cfg.AnomalyThreshold:
		result = SessionDisagreement
	}

	if result == SessionAnomaly {
		observability.LogEvent(Logger, observability.EventQualityAnomaly, map[string]interface{}{
			"min_agreement": minAgreement,
			"providers":     names,
		})
	}
	return result, minAgreement
}
