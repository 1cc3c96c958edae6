// Package provider defines the research-provider capability interface and
// the fallback engine that selects among, retries, and circuit-breaks
// concrete providers (§4.2).
package provider

import (
	"context"
	"time"

	"github.com/fortitude-ai/fortitude/pkg/models"
)

// Query is a research request sent to a provider, already augmented with
// retrieved context by the research engine (§4.4).
type Query struct {
	Text         string
	ResearchType models.ResearchType
	Context      string
	MaxTokens    int
	Temperature  float64
}

// Response is a provider's raw research output before quality scoring or
// section parsing.
type Response struct {
	Content    string
	TokensUsed int
	Latency    time.Duration
}

// UsageStats accumulates a provider's lifetime usage for cost reporting.
type UsageStats struct {
	TotalRequests     int64
	TotalTokens       int64
	TotalCostEstimate float64
}

// Provider is the polymorphic research-provider capability interface
// (§4.2). Implementations must be safe for concurrent use: the fallback
// engine may invoke the same provider from multiple goroutines.
type Provider interface {
	// Name returns the provider's identifier (e.g. "ollama", "anthropic").
	Name() string

	// Metadata returns the provider's static capabilities.
	Metadata() models.ProviderMetadata

	// ResearchQuery executes a single research request against the provider.
	ResearchQuery(ctx context.Context, q Query) (*Response, error)

	// HealthCheck reports the provider's current health.
	HealthCheck(ctx context.Context) (*models.HealthMetrics, error)

	// EstimateCost estimates the cost of a request of the given token count.
	EstimateCost(tokens int) float64

	// ValidateQuery rejects malformed or oversized queries before dispatch.
	ValidateQuery(q Query) error

	// UsageStats returns the provider's accumulated usage.
	UsageStats() UsageStats
}

// ValidateQuery is shared validation logic concrete providers can embed:
// queries must carry non-empty text within the provider's context budget.
func ValidateQuery(q Query, maxContextTokens int) error {
	if q.Text == "" {
		return models.NewError(models.ErrBadRequest, "query text must not be empty")
	}
	// A rough 4-characters-per-token heuristic, consistent with the budget
	// language in spec.md §4.4 (max_context_documents / token budgets).
	estimatedTokens := (len(q.Text) + len(q.Context)) / 4
	if maxContextTokens > 0 && estimatedTokens > maxContextTokens {
		return models.NewError(models.ErrBadRequest, "query exceeds provider context budget").
			WithDetails("estimated_tokens", estimatedTokens).
			WithDetails("max_context_tokens", maxContextTokens)
	}
	return nil
}
