package quality

import (
	"math"
	"regexp"
	"strings"
)

// relevanceWeights splits Relevance between semantic overlap, keyword
// coverage, and topic coherence, mirroring scoring.rs's RelevanceConfig
// defaults. Unlike QualityConfig.Weights (the cross-dimension composite
// weights), these sub-weights are internal to the relevance formula and
// are not independently configurable, matching the original's design.
const (
	relevanceSemanticWeight  = 0.5
	relevanceKeywordWeight   = 0.3
	relevanceCoherenceWeight = 0.2
)

// accuracyWeights splits Accuracy between fact confidence, internal
// consistency, and citation density, mirroring scoring.rs's AccuracyConfig
// defaults.
const (
	accuracyFactWeight       = 0.5
	accuracyConsistencyWeight = 0.3
	accuracyCitationWeight    = 0.2
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true, "will": true, "would": true, "could": true, "should": true,
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = true
	}
	return set
}

// semanticOverlap is a Jaccard score on normalized token sets, standing in
// for embedding cosine similarity per spec.md §4.5's "placeholder for
// embedding cosine" note — internal/retrieval already owns the real
// embedding path; quality scoring stays cheap and dependency-free so it can
// meet the <100ms budget without a network round trip to Ollama.
func semanticOverlap(query, response string) float64 {
	q, r := tokenSet(query), tokenSet(response)
	if len(q) == 0 && len(r) == 0 {
		return 0
	}
	intersection := 0
	union := make(map[string]bool, len(q)+len(r))
	for w := range q {
		union[w] = true
		if r[w] {
			intersection++
		}
	}
	for w := range r {
		union[w] = true
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

func extractKeywords(text string) []string {
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if !stopWords[w] && len(w) > 2 {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

// keywordCoverage is |Q_kw ∩ R| / |Q_kw| after stop-word removal.
func keywordCoverage(query, response string) float64 {
	keywords := extractKeywords(query)
	if len(keywords) == 0 {
		return 1.0
	}
	responseLower := strings.ToLower(response)
	covered := 0
	for _, kw := range keywords {
		if strings.Contains(responseLower, kw) {
			covered++
		}
	}
	return float64(covered) / float64(len(keywords))
}

func nounishTokens(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 3 {
			set[w] = true
		}
	}
	return set
}

// topicCoherence approximates noun overlap between query and response.
func topicCoherence(query, response string) float64 {
	q, r := nounishTokens(query), nounishTokens(response)
	if len(q) == 0 {
		return 0.5
	}
	common := 0
	for w := range q {
		if r[w] {
			common++
		}
	}
	coherence := float64(common) / float64(len(q))
	if coherence > 1.0 {
		coherence = 1.0
	}
	return coherence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// relevance combines semantic overlap, keyword coverage, and topic
// coherence per spec.md §4.5's Relevance formula.
func relevance(query, response string) float64 {
	score := semanticOverlap(query, response)*relevanceSemanticWeight +
		keywordCoverage(query, response)*relevanceKeywordWeight +
		topicCoherence(query, response)*relevanceCoherenceWeight
	return clamp01(score)
}

var uncertaintyPatterns = []string{
	"might", "could", "possibly", "perhaps", "maybe", "allegedly",
	"reportedly", "supposedly", "claims", "according to some",
}

// uncertaintyDensity counts hedging-language occurrences per word.
func uncertaintyDensity(response string) float64 {
	words := strings.Fields(response)
	if len(words) == 0 {
		return 0
	}
	responseLower := strings.ToLower(response)
	count := 0
	for _, p := range uncertaintyPatterns {
		count += strings.Count(responseLower, p)
	}
	return float64(count) / float64(len(words))
}

var contradictionPairs = [][2]string{
	{"however", "but"},
	{"although", "despite"},
	{"not", "never"},
}

// consistency penalizes co-occurring contradiction-signaling connectors.
func consistency(response string) float64 {
	responseLower := strings.ToLower(response)
	score := 1.0
	for _, pair := range contradictionPairs {
		if strings.Contains(responseLower, pair[0]) && strings.Contains(responseLower, pair[1]) {
			score -= 0.1
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[[0-9]+\]`),
	regexp.MustCompile(`\([^)]*\d{4}[^)]*\)`),
	regexp.MustCompile(`https?://\S+`),
	regexp.MustCompile(`doi:\S+`),
}

// citationDensity counts [n]/(Author, YYYY)/URL/DOI markers normalized by
// response length (per 100 words).
func citationDensity(response string) float64 {
	count := 0
	for _, p := range citationPatterns {
		count += len(p.FindAllString(response, -1))
	}
	words := float64(len(strings.Fields(response)))
	denom := words / 100.0
	if denom < 1.0 {
		denom = 1.0
	}
	density := float64(count) / denom
	if density > 1.0 {
		density = 1.0
	}
	return density
}

// accuracy combines fact confidence, consistency, and citation density per
// spec.md §4.5's Accuracy formula.
func accuracy(response string) float64 {
	factAccuracy := clamp01(1.0 - uncertaintyDensity(response)*2.0)
	score := factAccuracy*accuracyFactWeight +
		consistency(response)*accuracyConsistencyWeight +
		citationDensity(response)*accuracyCitationWeight
	return clamp01(score)
}

// structuralSections are the headers a complete research answer is
// expected to cover, mirroring internal/research's parsed sections.
var structuralSections = []string{"answer", "evidence", "implementation"}

const completenessMinLength = 50

// completeness is the fraction of expected structural sections present in
// the response, gated by a minimum-length guard — spec.md §4.5 names this
// "template coverage ... with minimum-length guard" without fixing an
// exact formula, so the section set is research's own §4.4 vocabulary
// rather than the Rust placeholder's flat 0.8.
func completeness(response string) float64 {
	if len(strings.TrimSpace(response)) < completenessMinLength {
		return clamp01(float64(len(strings.TrimSpace(response))) / completenessMinLength * 0.5)
	}
	responseLower := strings.ToLower(response)
	present := 0
	for _, section := range structuralSections {
		if strings.Contains(responseLower, "## "+section) || strings.Contains(responseLower, section+":") {
			present++
		}
	}
	if present == 0 {
		// No explicit section markers: a well-formed free-form answer of
		// sufficient length still counts as substantively complete.
		return 0.8
	}
	return float64(present) / float64(len(structuralSections))
}

const clarityOptimalSentenceLength = 17.5

// clarity scores sentence-length proximity to the 17.5-word sweet spot per
// spec.md §4.5.
func clarity(response string) float64 {
	sentences := strings.FieldsFunc(response, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	if len(sentences) == 0 {
		return 0
	}
	total := 0
	for _, s := range sentences {
		total += len(strings.Fields(s))
	}
	avg := float64(total) / float64(len(sentences))

	if avg < 5.0 || avg > 30.0 {
		return 0.5
	}
	score := 1.0 - math.Abs(avg-clarityOptimalSentenceLength)/clarityOptimalSentenceLength*0.5
	return clamp01(score)
}

var credibilityMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\[[0-9]+\]`),
	regexp.MustCompile(`https?://\S+`),
	regexp.MustCompile(`(?i)\b(according to|source|reference|documentation)\b`),
}

// credibility rewards source-authority signals (citations, explicit
// references); spec.md §4.5 describes this as "neutral until sources
// attached" — rather than the Rust placeholder's flat constant, a neutral
// baseline of 0.5 is nudged upward per distinct marker found, capped at 1.
func credibility(response string) float64 {
	score := 0.5
	for _, m := range credibilityMarkers {
		if m.MatchString(response) {
			score += 0.15
		}
	}
	return clamp01(score)
}

var recencyMarkers = regexp.MustCompile(`(?i)\b(today|currently|as of|recently|latest|this year|202[0-9])\b`)

// timeliness is neutral (0.5) absent any recency signal, and biased
// upward when the response names an explicit or relative recency marker,
// per spec.md §4.5's "explicit or inferred recency; neutral when unknown."
func timeliness(response string) float64 {
	if recencyMarkers.MatchString(response) {
		return 0.8
	}
	return 0.5
}

var numberPattern = regexp.MustCompile(`\b\d+(\.\d+)?`)
var properNounPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}\b`)

// specificity measures detail density (numbers, capitalized/named terms)
// normalized by response length, per spec.md §4.5.
func specificity(response string) float64 {
	words := len(strings.Fields(response))
	if words == 0 {
		return 0
	}
	numbers := len(numberPattern.FindAllString(response, -1))
	properNouns := len(properNounPattern.FindAllString(response, -1))
	density := float64(numbers+properNouns) / float64(words)
	return clamp01(density * 5)
}
