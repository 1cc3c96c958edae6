// Package api defines the request, response, and error-envelope types for
// Fortitude's external interface (§6). It is deliberately types-only: no
// HTTP mux, MCP transport, or CLI wiring lives here — those surfaces are
// out of scope per spec.md §1 and are built by whatever collaborator
// embeds this module (an HTTP handler, an MCP tool, a CLI command), all of
// which can marshal these types directly to/from JSON.
package api

import (
	"time"

	"github.com/fortitude-ai/fortitude/pkg/models"
)

// ErrorKind enumerates the error envelope's `kind` field (§6, §7).
type ErrorKind string

const (
	KindBadRequest          ErrorKind = "BadRequest"
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindForbidden           ErrorKind = "Forbidden"
	KindNotFound            ErrorKind = "NotFound"
	KindRateLimited         ErrorKind = "RateLimited"
	KindInternalError       ErrorKind = "InternalError"
	KindTimeout             ErrorKind = "Timeout"
	KindServiceUnavailable  ErrorKind = "ServiceUnavailable"
)

// ErrorEnvelope is the error shape returned on every failed call, per
// spec.md §6. CorrelationID is required on every response, success or
// failure.
type ErrorEnvelope struct {
	Kind          ErrorKind `json:"kind"`
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlation_id"`
	RetryAfter    *int      `json:"retry_after,omitempty"`
}

// errorCodeToKind maps models.ErrorCode (internal error taxonomy, §7) to
// the external ErrorKind surfaced on the wire. Kinds not reachable from any
// models.ErrorCode (Forbidden) exist only because spec.md §6 enumerates
// them as part of the general envelope shape collaborators may need for
// surfaces Fortitude doesn't itself produce (e.g. an auth gateway in front
// of it).
var errorCodeToKind = map[models.ErrorCode]ErrorKind{
	models.ErrBadRequest:         KindBadRequest,
	models.ErrUnauthorized:       KindUnauthorized,
	models.ErrNotFound:           KindNotFound,
	models.ErrRateLimited:        KindRateLimited,
	models.ErrQuotaExceeded:      KindRateLimited,
	models.ErrTimeout:            KindTimeout,
	models.ErrServiceUnavailable: KindServiceUnavailable,
	models.ErrCircuitOpen:        KindServiceUnavailable,
	models.ErrInternal:           KindInternalError,
	models.ErrLowConfidence:      KindInternalError,
	models.ErrValidationFailed:   KindBadRequest,
	models.ErrTemplateParam:      KindInternalError,
	models.ErrPerformanceBudget:  KindInternalError,
	models.ErrQueryFailed:        KindInternalError,
}

// NewErrorEnvelope renders a models.Error into the wire envelope shape,
// defaulting to InternalError for codes §6 doesn't name explicitly.
func NewErrorEnvelope(err *models.Error) ErrorEnvelope {
	kind, ok := errorCodeToKind[err.Code]
	if !ok {
		kind = KindInternalError
	}

	env := ErrorEnvelope{
		Kind:          kind,
		Message:       err.Message,
		CorrelationID: err.CorrelationID,
	}
	if err.RetryAfter > 0 {
		seconds := int(err.RetryAfter / time.Second)
		env.RetryAfter = &seconds
	}
	return env
}

// ClassifyOptions tunes a classify call; the zero value is NOT the wire
// default — use DefaultClassifyOptions.
type ClassifyOptions struct {
	EnableContextDetection      bool    `json:"enable_context_detection"`
	EnableAdvancedClassification bool   `json:"enable_advanced_classification"`
	ConfidenceThreshold         float64 `json:"confidence_threshold"`
	MaxProcessingTimeMS         int     `json:"max_processing_time_ms"`
	IncludeExplanations         bool    `json:"include_explanations"`
}

// DefaultClassifyOptions returns the wire defaults named in spec.md §6.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{
		EnableContextDetection:       true,
		EnableAdvancedClassification: false,
		ConfidenceThreshold:          0.6,
		MaxProcessingTimeMS:          5000,
		IncludeExplanations:          true,
	}
}

// ClassifyRequest is the POST classify(text, options?) request body.
type ClassifyRequest struct {
	Text    string           `json:"text"`
	Options *ClassifyOptions `json:"options,omitempty"`
}

// ClassifyResponse wraps the classifier's output with the correlation id
// every response carries.
type ClassifyResponse struct {
	Classification models.EnhancedClassification `json:"classification"`
	CorrelationID  string                        `json:"correlation_id"`
}

// ResearchOptions overrides research-engine behavior for a single call.
type ResearchOptions struct {
	ProviderStrategy        string `json:"provider_strategy,omitempty"`
	EnableContext           *bool  `json:"enable_context,omitempty"`
	EnableQualityValidation *bool  `json:"enable_quality_validation,omitempty"`
}

// ResearchRequest is the POST research(ClassifiedRequest, options?) request
// body.
type ResearchRequest struct {
	Request models.ClassifiedRequest `json:"request"`
	Options *ResearchOptions         `json:"options,omitempty"`
}

// ResearchResponse wraps a completed research result.
type ResearchResponse struct {
	Result        models.ResearchResult `json:"result"`
	CorrelationID string                 `json:"correlation_id"`
}

// ClassificationTypesResponse is the GET classification/types payload: the
// enumerations a caller needs to build a classify/research UI without
// hardcoding Fortitude's domain vocabulary.
type ClassificationTypesResponse struct {
	ResearchTypes    []models.ResearchType    `json:"research_types"`
	AudienceLevels   []models.AudienceLevel   `json:"audience_levels"`
	TechnicalDomains []models.TechnicalDomain `json:"technical_domains"`
	UrgencyLevels    []models.Urgency         `json:"urgency_levels"`
	SystemInfo       map[string]string        `json:"system_info"`
}

// HybridSearchRequest is the POST search/hybrid(req) request body. It
// mirrors internal/retrieval.Request's fields in a JSON-friendly shape
// rather than importing that package directly, keeping api a pure-types
// leaf that any transport can depend on without pulling in the retrieval
// engine.
type HybridSearchRequest struct {
	Query          string            `json:"query"`
	Strategy       string            `json:"strategy,omitempty"` // "SemanticFocus" | "KeywordFocus" | "Balanced"
	Fusion         string            `json:"fusion,omitempty"`   // "ReciprocalRankFusion" | "WeightedSum"
	Limit          int               `json:"limit,omitempty"`
	Threshold      float64           `json:"threshold,omitempty"`
	Filters        map[string]string `json:"filters,omitempty"`
	MinHybridScore float64           `json:"min_hybrid_score,omitempty"`
	Strict         bool              `json:"strict,omitempty"`
}

// HybridSearchResponse is search/hybrid's response: the fused results plus
// the execution stats spec.md §6 names.
type HybridSearchResponse struct {
	Results        []models.RetrievalResult `json:"results"`
	ExecutionStats ExecutionStats           `json:"execution_stats"`
}

// ExecutionStats is the JSON-tagged mirror of
// internal/retrieval.ExecutionStats, for the same decoupling reason as
// HybridSearchRequest.
type ExecutionStats struct {
	SemanticHits  int     `json:"semantic_hits"`
	KeywordHits   int     `json:"keyword_hits"`
	FusedHits     int     `json:"fused_hits"`
	SearchTimeMS  float64 `json:"search_time_ms"`
	Degraded      bool    `json:"degraded"`
	DegradeReason string  `json:"degrade_reason,omitempty"`
}

// ProvidersMetadataResponse is the GET providers/metadata payload.
type ProvidersMetadataResponse struct {
	Providers []models.ProviderMetadata `json:"providers"`
}

// ProvidersHealthResponse is the GET providers/health payload: a map from
// provider name to its health snapshot.
type ProvidersHealthResponse struct {
	Providers map[string]models.HealthMetrics `json:"providers"`
}

// FeedbackAck is the POST feedback(FeedbackRecord) response: acknowledgment
// that the record was accepted, with the id it was stored under.
type FeedbackAck struct {
	ID            string `json:"id"`
	CorrelationID string `json:"correlation_id"`
}

// MetricsResponse is the GET metrics payload (§6): totals, latency
// percentiles per component, per-provider health, and the cache/quality
// aggregates spec.md names.
type MetricsResponse struct {
	TotalRequests      int64                        `json:"total_requests"`
	SuccessCount       int64                        `json:"success_count"`
	FailureCount       int64                        `json:"failure_count"`
	LatencyPercentiles map[string]ComponentLatency   `json:"latency_percentiles"`
	ProviderHealth     map[string]models.HealthMetrics `json:"provider_health"`
	CacheHitRate       float64                      `json:"cache_hit_rate"`
	AverageQualityScore float64                     `json:"average_quality_score"`
	ErrorRatePercent   float64                      `json:"error_rate_percent"`
	TimestampUnix      int64                        `json:"timestamp_unix"`
}

// ComponentLatency is one component's p50/p95/p99 latency, in
// milliseconds.
type ComponentLatency struct {
	P50 float64 `json:"p50_ms"`
	P95 float64 `json:"p95_ms"`
	P99 float64 `json:"p99_ms"`
}
