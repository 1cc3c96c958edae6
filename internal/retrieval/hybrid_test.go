package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortitude-ai/fortitude/pkg/models"
)

func doc(id string) models.VectorDocument {
	return models.VectorDocument{ID: id, Content: "content about " + id}
}

func TestReciprocalRankFusion_CombinesBothLists(t *testing.T) {
	semantic := []SemanticHit{{Document: doc("a"), Score: 0.9}, {Document: doc("b"), Score: 0.5}}
	keyword := []KeywordHit{{Document: doc("b"), Score: 0.8}, {Document: doc("c"), Score: 0.7}}

	results := reciprocalRankFusion(semantic, keyword, strategyWeights[StrategyBalanced], 60)

	require.Len(t, results, 3)
	// "b" is ranked in both lists, so it must score higher than "a" or "c"
	// which are ranked in only one.
	var bScore float64
	for _, r := range results {
		if r.Document.ID == "b" {
			bScore = r.Score
		}
	}
	for _, r := range results {
		if r.Document.ID != "b" {
			assert.Greater(t, bScore, r.Score)
		}
	}
}

func TestSortByScoreThenID_TieBreaksByQualityThenID(t *testing.T) {
	a := doc("z")
	a.Metadata = map[string]string{"quality_score": "0.9"}
	b := doc("a")
	b.Metadata = map[string]string{"quality_score": "0.2"}

	results := []models.RetrievalResult{
		{Document: a, Score: 0.5},
		{Document: b, Score: 0.5},
	}
	sortByScoreThenID(results)

	assert.Equal(t, "z", results[0].Document.ID, "higher quality_score should win an exact score tie even out of lex order")
}

func TestSortByScoreThenID_FallsBackToIDLexOrder(t *testing.T) {
	results := []models.RetrievalResult{
		{Document: doc("z"), Score: 0.5},
		{Document: doc("a"), Score: 0.5},
	}
	sortByScoreThenID(results)
	assert.Equal(t, "a", results[0].Document.ID, "equal score and quality_score falls back to id lex order")
}

func TestWeightedSum_RespectsStrategyWeights(t *testing.T) {
	semantic := []SemanticHit{{Document: doc("a"), Score: 1.0}}
	keyword := []KeywordHit{{Document: doc("a"), Score: 0.0}}

	semanticFocus := weightedSum(semantic, keyword, strategyWeights[StrategySemanticFocus])
	keywordFocus := weightedSum(semantic, keyword, strategyWeights[StrategyKeywordFocus])

	assert.Greater(t, semanticFocus[0].Score, keywordFocus[0].Score)
}

func TestApplyThreshold_DropsBelowMinimum(t *testing.T) {
	results := []models.RetrievalResult{
		{Document: doc("a"), Score: 0.9},
		{Document: doc("b"), Score: 0.05},
	}
	filtered := applyThreshold(results, 0.1)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a", filtered[0].Document.ID)
}

func TestApplyThreshold_ZeroMinKeepsEverything(t *testing.T) {
	results := []models.RetrievalResult{{Document: doc("a"), Score: 0.0}}
	assert.Len(t, applyThreshold(results, 0), 1)
}

func TestApplyMMR_RespectsLimit(t *testing.T) {
	results := []models.RetrievalResult{
		{Document: doc("a"), Score: 0.9},
		{Document: doc("b"), Score: 0.8},
		{Document: doc("c"), Score: 0.7},
	}
	selected := applyMMR(results, 0.7, 2)
	assert.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].Document.ID, "top result is always kept")
}

func TestApplyMMR_PrefersDiverseOverNearDuplicate(t *testing.T) {
	top := models.RetrievalResult{Document: models.VectorDocument{ID: "a", Content: "go channels select goroutine"}, Score: 0.9}
	nearDup := models.RetrievalResult{Document: models.VectorDocument{ID: "b", Content: "go channels select goroutines"}, Score: 0.85}
	distinct := models.RetrievalResult{Document: models.VectorDocument{ID: "c", Content: "rust ownership borrow checker"}, Score: 0.6}

	selected := applyMMR([]models.RetrievalResult{top, nearDup, distinct}, 0.5, 2)

	require.Len(t, selected, 2)
	assert.Equal(t, "c", selected[1].Document.ID, "low-lambda MMR should favor the diverse result over the near-duplicate")
}

func TestTextSimilarity_IdenticalTextIsOne(t *testing.T) {
	assert.Equal(t, 1.0, textSimilarity("go channels are fun", "go channels are fun"))
}

func TestTextSimilarity_DisjointTextIsZero(t *testing.T) {
	assert.Equal(t, 0.0, textSimilarity("go channels", "rust borrow checker"))
}

func TestSortByScoreThenID_OrdersDescending(t *testing.T) {
	results := []models.RetrievalResult{
		{Document: doc("z"), Score: 0.1},
		{Document: doc("a"), Score: 0.9},
	}
	sortByScoreThenID(results)
	assert.Equal(t, "a", results[0].Document.ID)
}
