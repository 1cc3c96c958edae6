package models

import "time"

// ResearchType is the kind of research a query requires.
type ResearchType string

// Research types drive prompt template selection (§4.4) and retrieval
// strategy selection (§4.3).
const (
	ResearchLearning        ResearchType = "learning"
	ResearchImplementation  ResearchType = "implementation"
	ResearchTroubleshooting ResearchType = "troubleshooting"
	ResearchDecision        ResearchType = "decision"
	ResearchValidation      ResearchType = "validation"
)

// AudienceLevel is the detected experience level of the requester.
type AudienceLevel string

const (
	AudienceBeginner     AudienceLevel = "beginner"
	AudienceIntermediate AudienceLevel = "intermediate"
	AudienceAdvanced     AudienceLevel = "advanced"
)

// Urgency is the detected time-sensitivity of a request.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyPlanned   Urgency = "planned"
	UrgencyExploratory Urgency = "exploratory"
)

// TechnicalDomain is the detected subject-matter area of a request: a
// non-exhaustive closed set (§3, §4.1, §6).
type TechnicalDomain string

const (
	DomainGeneral      TechnicalDomain = "general"
	DomainRust         TechnicalDomain = "rust"
	DomainWeb          TechnicalDomain = "web"
	DomainPython       TechnicalDomain = "python"
	DomainDevOps       TechnicalDomain = "devops"
	DomainAI           TechnicalDomain = "ai"
	DomainDatabase     TechnicalDomain = "database"
	DomainArchitecture TechnicalDomain = "architecture"
	DomainSecurity     TechnicalDomain = "security"
)

// AllTechnicalDomains lists every recognized domain, for the GET
// classification/types enumeration (§6).
func AllTechnicalDomains() []TechnicalDomain {
	return []TechnicalDomain{
		DomainGeneral, DomainRust, DomainWeb, DomainPython, DomainDevOps,
		DomainAI, DomainDatabase, DomainArchitecture, DomainSecurity,
	}
}

// ClassifiedRequest is a raw query plus the context the classifier detected
// before scoring rules are applied.
type ClassifiedRequest struct {
	Query           string            `json:"query"`
	TechnicalDomain string            `json:"technical_domain,omitempty"`
	Context         map[string]string `json:"context,omitempty"`
	ReceivedAt      time.Time         `json:"received_at"`
}

// EnhancedClassification is the classifier's output: a research type with a
// confidence score, the dimensions that contributed to it, and whether the
// fallback policy capped the result.
type EnhancedClassification struct {
	ResearchType       ResearchType       `json:"research_type"`
	AudienceLevel      AudienceLevel      `json:"audience_level"`
	TechnicalDomain    TechnicalDomain    `json:"technical_domain"`
	Urgency            Urgency            `json:"urgency"`
	Confidence         float64            `json:"confidence"`
	MatchedKeywords    []string           `json:"matched_keywords,omitempty"`
	RulePriority       int                `json:"rule_priority"`
	FallbackUsed       bool               `json:"fallback_used"`
	DimensionScores    map[string]float64 `json:"dimension_scores,omitempty"`
}

// VectorDocument is a retrievable unit of knowledge: a chunk of source text,
// its embedding, and the metadata needed to filter and attribute it.
type VectorDocument struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`
	Source    string            `json:"source,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// RetrievalResult pairs a VectorDocument with the relevance it was retrieved
// at, and which fusion path produced it (semantic, keyword, or merged).
type RetrievalResult struct {
	Document      VectorDocument `json:"document"`
	Score         float64        `json:"score"`
	Rank          int            `json:"rank"`
	SemanticScore float64        `json:"semantic_score,omitempty"`
	KeywordScore  float64        `json:"keyword_score,omitempty"`
	FusionMethod  string         `json:"fusion_method,omitempty"`
}

// ProviderMetadata describes a research provider's static capabilities.
type ProviderMetadata struct {
	Name                 string         `json:"name"`
	SupportedTypes        []ResearchType `json:"supported_research_types"`
	CostPerThousandTokens float64        `json:"cost_per_thousand_tokens"`
	MaxContextTokens      int            `json:"max_context_tokens"`
	Priority              int            `json:"priority"`
}

// CircuitState is a circuit breaker's position in the Closed/Open/HalfOpen
// automaton (§4.2, §9).
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// HealthMetrics is a provider's rolling health snapshot, consulted by the
// HealthBased and PerformanceBased selection strategies.
type HealthMetrics struct {
	Provider            string        `json:"provider"`
	SuccessRate         float64       `json:"success_rate"`
	AverageLatency      time.Duration `json:"average_latency"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	CircuitState        CircuitState  `json:"circuit_state"`
	LastCheckedAt       time.Time     `json:"last_checked_at"`
	LastError           string        `json:"last_error,omitempty"`
}

// ResearchResult is the parsed, scored output of a research engine run.
type ResearchResult struct {
	Query              string           `json:"query"`
	Answer             string           `json:"answer"`
	Evidence           string           `json:"evidence,omitempty"`
	Implementation     string           `json:"implementation,omitempty"`
	ProviderUsed       string           `json:"provider_used"`
	FallbackUsed       bool             `json:"fallback_used"`
	ContextDocuments   []RetrievalResult `json:"context_documents,omitempty"`
	Quality            *QualityScore    `json:"quality,omitempty"`
	LowQuality         bool             `json:"low_quality,omitempty"`
	ProcessingTime     time.Duration    `json:"processing_time"`
	CorrelationID      string           `json:"correlation_id,omitempty"`
	CacheKey           string           `json:"cache_key,omitempty"`
}

// QualityScore is the 7-dimension evaluation of a research result (§4.5).
type QualityScore struct {
	Relevance     float64 `json:"relevance"`
	Accuracy      float64 `json:"accuracy"`
	Completeness  float64 `json:"completeness"`
	Clarity       float64 `json:"clarity"`
	Credibility   float64 `json:"credibility"`
	Timeliness    float64 `json:"timeliness"`
	Specificity   float64 `json:"specificity"`
	Composite     float64 `json:"composite"`
	Confidence    float64 `json:"confidence"`
}

// FeedbackRecord is a user rating of a research result, the raw material for
// adaptive weight learning (§4.6).
type FeedbackRecord struct {
	ID             string             `json:"id"`
	ResearchQuery  string             `json:"research_query"`
	ProviderUsed   string             `json:"provider_used"`
	Rating         float64            `json:"rating"` // 0.0-1.0
	DimensionRatings map[string]float64 `json:"dimension_ratings,omitempty"`
	Comment        string             `json:"comment,omitempty"`
	SubmittedAt    time.Time          `json:"submitted_at"`
}
