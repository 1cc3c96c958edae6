package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/retrieval"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// maxContextDocChars is the per-document truncation length applied before a
// retrieved document is folded into the prompt, matching the original
// research engine's 500-character context snippet cap.
const maxContextDocChars = 500

// strategyByResearchType assigns hybrid_search's strategy from the
// classified research type (§4.4): Decision and Learning lean semantic,
// Troubleshooting leans keyword, Implementation and Validation balance both.
var strategyByResearchType = map[models.ResearchType]retrieval.Strategy{
	models.ResearchDecision:        retrieval.StrategySemanticFocus,
	models.ResearchLearning:        retrieval.StrategySemanticFocus,
	models.ResearchTroubleshooting: retrieval.StrategyKeywordFocus,
	models.ResearchImplementation:  retrieval.StrategyBalanced,
	models.ResearchValidation:      retrieval.StrategyBalanced,
}

// discoverContext runs hybrid_search to find supporting documents for a
// query, using the strategy its research type implies. Any retrieval
// failure degrades to an empty context slice rather than failing the
// enclosing research call — retrieval.Service.Search already degrades
// internally, so this only adds the research-type-to-strategy mapping.
func discoverContext(ctx context.Context, retriever *retrieval.Service, rt models.ResearchType, query string, cfg config.ResearchConfig) ([]models.RetrievalResult, error) {
	if retriever == nil || !cfg.EnableVectorSearch {
		return nil, nil
	}

	strategy, ok := strategyByResearchType[rt]
	if !ok {
		strategy = retrieval.StrategyBalanced
	}

	resp, err := retriever.Search(ctx, retrieval.Request{
		Query:          query,
		Strategy:       strategy,
		Fusion:         retrieval.FusionRRF,
		Limit:          cfg.MaxContextDocuments,
		Threshold:      cfg.ContextRelevanceThreshold,
		MinHybridScore: cfg.ContextRelevanceThreshold,
	})
	if err != nil {
		// retrieval.Service.Search only returns an error in Strict mode,
		// which this call never sets; degrade to empty context anyway so a
		// future Strict default can't silently break research.
		return nil, nil
	}
	return resp.Results, nil
}

// buildContextSection renders retrieved documents into the prompt's
// supporting-context block, truncating each to maxContextDocChars and
// instructing the model not to simply restate it.
func buildContextSection(docs []models.RetrievalResult) string {
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n### Supporting Context\n")
	for i, d := range docs {
		content := d.Document.Content
		if len(content) > maxContextDocChars {
			content = content[:maxContextDocChars-3] + "..."
		}
		fmt.Fprintf(&b, "\n#### Context Document %d (Relevance: %.2f)\n%s\n", i+1, d.Score, content)
	}
	b.WriteString("\nPlease consider this context in your answer, but do not simply repeat it verbatim.\n")
	return b.String()
}
