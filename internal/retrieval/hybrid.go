package retrieval

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// Strategy selects which signal hybrid_search weights toward, per §4.3.
type Strategy string

const (
	StrategySemanticFocus Strategy = "SemanticFocus"
	StrategyKeywordFocus  Strategy = "KeywordFocus"
	StrategyBalanced      Strategy = "Balanced"
)

// Fusion selects how semantic and keyword result lists are combined.
type Fusion string

const (
	FusionRRF        Fusion = "ReciprocalRankFusion"
	FusionWeightedSum Fusion = "WeightedSum"
)

// strategyWeights gives the semantic/keyword split each Strategy targets
// in WeightedSum fusion and the semantic bias each contributes to RRF,
// mirroring strategyWeightMatrix keyed by query type instead
// of an explicit caller-selected strategy.
var strategyWeights = map[Strategy]struct{ Semantic, Keyword float64 }{
	StrategySemanticFocus: {Semantic: 0.8, Keyword: 0.2},
	StrategyKeywordFocus:  {Semantic: 0.2, Keyword: 0.8},
	StrategyBalanced:      {Semantic: 0.5, Keyword: 0.5},
}

// Request is a hybrid_search invocation (§4.3).
type Request struct {
	Query          string
	Strategy       Strategy
	Fusion         Fusion
	Limit          int
	Threshold      float64
	Filters        map[string]string
	CustomWeights  *struct{ Semantic, Keyword float64 }
	MinHybridScore float64
	Strict         bool // when true, retrieval errors propagate instead of degrading to empty.
}

// ExecutionStats reports what hybrid_search actually did, for callers that
// want to distinguish a confidently-empty result from a degraded one.
type ExecutionStats struct {
	SemanticHits  int
	KeywordHits   int
	FusedHits     int
	SearchTimeMS  float64
	Degraded      bool
	DegradeReason string
	CacheMetrics  CacheMetrics
}

// Response is hybrid_search's return value.
type Response struct {
	Results []models.RetrievalResult
	Stats   ExecutionStats
}

// Retriever ties the embedding service, keyword index, and vector store
// together behind the fusion operators hybrid_search.go
// implements for document chunks, generalized to Fortitude's
// VectorDocument/RetrievalResult domain.
type Retriever struct {
	embed    *CachedEmbeddingService
	vectors  *VectorStore
	keywords *KeywordIndex
	cfg      config.RetrievalConfig
	logger   zerolog.Logger
}

// NewRetriever wires the three backends behind a single hybrid_search
// entry point.
func NewRetriever(embed *CachedEmbeddingService, vectors *VectorStore, keywords *KeywordIndex, cfg config.RetrievalConfig) *Retriever {
	return &Retriever{
		embed:    embed,
		vectors:  vectors,
		keywords: keywords,
		cfg:      cfg,
		logger:   observability.Logger("retrieval.hybrid"),
	}
}

// Search performs hybrid_search. Retrieval failures degrade to an empty,
// non-error result unless req.Strict is set, per §4.3's failure semantics.
func (r *Retriever) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if req.Limit <= 0 {
		req.Limit = r.cfg.DefaultLimit
	}
	if req.Strategy == "" {
		req.Strategy = StrategyBalanced
	}
	if req.Fusion == "" {
		req.Fusion = FusionRRF
	}

	semanticHits, semErr := r.semanticSearch(ctx, req)
	keywordHits, kwErr := r.keywordSearch(ctx, req)

	stats := ExecutionStats{SemanticHits: len(semanticHits), KeywordHits: len(keywordHits)}

	if req.Strict {
		if semErr != nil {
			return nil, semErr
		}
		if kwErr != nil {
			return nil, kwErr
		}
	}
	if semErr != nil && kwErr != nil {
		stats.Degraded = true
		stats.DegradeReason = "both semantic and keyword search failed: " + semErr.Error() + "; " + kwErr.Error()
		stats.SearchTimeMS = float64(time.Since(start).Milliseconds())
		return &Response{Results: nil, Stats: stats}, nil
	}
	if semErr != nil {
		stats.Degraded = true
		stats.DegradeReason = "semantic search failed: " + semErr.Error()
	}
	if kwErr != nil {
		stats.Degraded = true
		stats.DegradeReason = "keyword search failed: " + kwErr.Error()
	}

	weights := r.weightsFor(req)

	var fused []models.RetrievalResult
	switch req.Fusion {
	case FusionWeightedSum:
		fused = weightedSum(semanticHits, keywordHits, weights)
	default:
		fused = reciprocalRankFusion(semanticHits, keywordHits, weights, 60)
	}

	fused = applyThreshold(fused, req.MinHybridScore)
	if req.Threshold > 0 {
		fused = applyThreshold(fused, req.Threshold)
	}

	if r.cfg.EnableRerank {
		fused = rerank(fused, semanticHits, r.rerankTopN())
	}
	if r.cfg.EnableMMR {
		fused = applyMMR(fused, r.mmrLambda(), req.Limit)
	} else if len(fused) > req.Limit {
		fused = fused[:req.Limit]
	}

	for i := range fused {
		fused[i].Rank = i + 1
	}

	stats.FusedHits = len(fused)
	stats.SearchTimeMS = float64(time.Since(start).Milliseconds())
	stats.CacheMetrics = r.embed.Metrics()

	return &Response{Results: fused, Stats: stats}, nil
}

func (r *Retriever) semanticSearch(ctx context.Context, req Request) ([]SemanticHit, error) {
	if r.embed == nil || r.vectors == nil {
		return nil, nil
	}
	vec, err := r.embed.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if r.cfg.EnableRerank && limit < r.rerankTopN() {
		limit = r.rerankTopN()
	}
	return r.vectors.Search(ctx, vec, limit, r.cfg.MinScore)
}

func (r *Retriever) keywordSearch(ctx context.Context, req Request) ([]KeywordHit, error) {
	if r.keywords == nil {
		return nil, nil
	}
	limit := req.Limit
	if r.cfg.EnableRerank && limit < r.rerankTopN() {
		limit = r.rerankTopN()
	}
	return r.keywords.Search(ctx, req.Query, limit)
}

func (r *Retriever) rerankTopN() int {
	if r.cfg.RerankTopN > 0 {
		return r.cfg.RerankTopN
	}
	return 30
}

func (r *Retriever) mmrLambda() float64 {
	if r.cfg.MMRLambda > 0 {
		return r.cfg.MMRLambda
	}
	return 0.7
}

func (r *Retriever) weightsFor(req Request) struct{ Semantic, Keyword float64 } {
	if req.CustomWeights != nil {
		return *req.CustomWeights
	}
	if w, ok := strategyWeights[req.Strategy]; ok {
		return w
	}
	return struct{ Semantic, Keyword float64 }{Semantic: r.cfg.SemanticWeight, Keyword: 1 - r.cfg.SemanticWeight}
}

// reciprocalRankFusion implements score(d) = Σ_lists w_list/(k+rank_list(d)),
// adapted from applyRRF, generalized to VectorDocument and
// an explicit semantic/keyword weight pair in place of a single
// semanticWeight scalar.
func reciprocalRankFusion(semantic []SemanticHit, keyword []KeywordHit, weights struct{ Semantic, Keyword float64 }, k int) []models.RetrievalResult {
	semRanks := make(map[string]int, len(semantic))
	for i, h := range semantic {
		semRanks[h.Document.ID] = i + 1
	}
	kwRanks := make(map[string]int, len(keyword))
	for i, h := range keyword {
		kwRanks[h.Document.ID] = i + 1
	}

	merged := make(map[string]models.RetrievalResult)
	for _, h := range semantic {
		merged[h.Document.ID] = models.RetrievalResult{Document: h.Document, SemanticScore: h.Score}
	}
	for _, h := range keyword {
		if existing, ok := merged[h.Document.ID]; ok {
			existing.KeywordScore = h.Score
			merged[h.Document.ID] = existing
		} else {
			merged[h.Document.ID] = models.RetrievalResult{Document: h.Document, KeywordScore: h.Score}
		}
	}

	results := make([]models.RetrievalResult, 0, len(merged))
	for id, res := range merged {
		var score float64
		if rank, ok := semRanks[id]; ok {
			score += weights.Semantic * (1.0 / float64(k+rank))
		}
		if rank, ok := kwRanks[id]; ok {
			score += weights.Keyword * (1.0 / float64(k+rank))
		}
		res.Score = score
		res.FusionMethod = string(FusionRRF)
		results = append(results, res)
	}

	sortByScoreThenID(results)
	return results
}

// weightedSum implements score(d) = w_s·semantic_sim(d) + w_k·keyword_sim(d)
// with w_s + w_k = 1, per §4.3.
func weightedSum(semantic []SemanticHit, keyword []KeywordHit, weights struct{ Semantic, Keyword float64 }) []models.RetrievalResult {
	merged := make(map[string]models.RetrievalResult)
	for _, h := range semantic {
		merged[h.Document.ID] = models.RetrievalResult{Document: h.Document, SemanticScore: h.Score}
	}
	for _, h := range keyword {
		if existing, ok := merged[h.Document.ID]; ok {
			existing.KeywordScore = h.Score
			merged[h.Document.ID] = existing
		} else {
			merged[h.Document.ID] = models.RetrievalResult{Document: h.Document, KeywordScore: h.Score}
		}
	}

	results := make([]models.RetrievalResult, 0, len(merged))
	for _, res := range merged {
		res.Score = weights.Semantic*res.SemanticScore + weights.Keyword*res.KeywordScore
		res.FusionMethod = string(FusionWeightedSum)
		results = append(results, res)
	}

	sortByScoreThenID(results)
	return results
}

// sortByScoreThenID breaks ties by (quality_score, id lex) per §4.3's
// tie-break rule, reading quality_score out of document metadata when a
// caller has populated it there.
func sortByScoreThenID(results []models.RetrievalResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		qi := qualityScoreOf(results[i].Document)
		qj := qualityScoreOf(results[j].Document)
		if qi != qj {
			return qi > qj
		}
		return results[i].Document.ID < results[j].Document.ID
	})
}

func qualityScoreOf(doc models.VectorDocument) float64 {
	if doc.Metadata == nil {
		return 0
	}
	v, ok := doc.Metadata["quality_score"]
	if !ok {
		return 0
	}
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

// applyThreshold drops results scoring below min, per §4.3's thresholding
// rule.
func applyThreshold(results []models.RetrievalResult, min float64) []models.RetrievalResult {
	if min <= 0 {
		return results
	}
	filtered := results[:0]
	for _, r := range results {
		if r.Score >= min {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// rerank re-scores the top candidates by boosting fused score with raw
// semantic similarity, adapted from applyReranking.
func rerank(results []models.RetrievalResult, semantic []SemanticHit, topN int) []models.RetrievalResult {
	if len(results) == 0 {
		return results
	}
	semScores := make(map[string]float64, len(semantic))
	for _, h := range semantic {
		semScores[h.Document.ID] = h.Score
	}

	n := len(results)
	if n > topN {
		n = topN
	}
	candidates := make([]models.RetrievalResult, n)
	copy(candidates, results[:n])
	for i := range candidates {
		if s, ok := semScores[candidates[i].Document.ID]; ok {
			candidates[i].Score *= 1.0 + s
		}
	}
	sortByScoreThenID(candidates)

	if n < len(results) {
		return append(candidates, results[n:]...)
	}
	return candidates
}

// applyMMR greedily selects a limit-sized, diversity-promoting subset,
// adapted from applyMMR: MMR = λ·relevance − (1−λ)·maxSim·relevance.
func applyMMR(results []models.RetrievalResult, lambda float64, limit int) []models.RetrievalResult {
	if len(results) <= 1 || limit <= 0 {
		if limit > 0 && len(results) > limit {
			return results[:limit]
		}
		return results
	}

	selected := []models.RetrievalResult{results[0]}
	remaining := append([]models.RetrievalResult(nil), results[1:]...)

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i, candidate := range remaining {
			maxSim := 0.0
			for _, sel := range selected {
				sim := textSimilarity(candidate.Document.Content, sel.Document.Content)
				if sim > maxSim {
					maxSim = sim
				}
			}
			mmrScore := lambda*candidate.Score - (1-lambda)*maxSim*candidate.Score
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// textSimilarity computes Jaccard similarity over word sets, used as
// MMR's diversity term.
func textSimilarity(a, b string) float64 {
	wa := tokenize(a)
	wb := tokenize(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

var tokenizeRe = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) map[string]bool {
	words := tokenizeRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
