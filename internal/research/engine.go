// Package research implements the research engine (§4.4): prompt template
// selection, retrieval-backed context augmentation, provider dispatch
// through the fallback engine, response parsing, and quality gating.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fortitude-ai/fortitude/internal/cachekey"
	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/internal/provider"
	"github.com/fortitude-ai/fortitude/internal/retrieval"
	"github.com/fortitude-ai/fortitude/internal/store"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// QualityValidator scores a completed research result. internal/quality
// implements this; it is accepted as an interface here so research never
// imports quality directly, matching this codebase's accept-interfaces style.
type QualityValidator interface {
	Score(ctx context.Context, result models.ResearchResult) (*models.QualityScore, error)
}

// Request is a single research invocation, already classified.
type Request struct {
	Query          string
	ResearchType   models.ResearchType
	AudienceLevel  models.AudienceLevel
	TemplateParams map[string]string
	CorrelationID  string
}

// Engine orchestrates a research request across the provider fallback
// engine and the hybrid retriever the way internal/ai's Manager wraps a
// single provider, generalized to Fortitude's two upstream dependencies.
type Engine struct {
	fallback  *provider.FallbackEngine
	retriever *retrieval.Service
	templates *Registry
	quality   QualityValidator
	cache     *store.Store
	cfg       config.ResearchConfig
	logger    zerolog.Logger
}

// NewEngine constructs a research engine. quality may be nil, in which case
// EnableQualityValidation is treated as disabled regardless of cfg. cache
// may be nil, in which case every request is executed fresh and its result
// is not persisted (§6's result cache is then simply unavailable).
func NewEngine(fallback *provider.FallbackEngine, retriever *retrieval.Service, quality QualityValidator, cache *store.Store, cfg config.ResearchConfig) *Engine {
	return &Engine{
		fallback:  fallback,
		retriever: retriever,
		templates: NewRegistry(),
		quality:   quality,
		cache:     cache,
		cfg:       cfg,
		logger:    observability.Logger("research.engine"),
	}
}

// cacheOptions is the canonical option set cachekey.Fingerprint combines
// with the query text, so that two requests differing only in research
// type, audience, template parameters, or vector-search mode never collide
// in the result cache (§3, §6).
func cacheOptions(req Request, cfg config.ResearchConfig) map[string]string {
	opts := map[string]string{
		"research_type":  string(req.ResearchType),
		"audience_level": string(req.AudienceLevel),
		"vector_search":  cachekey.BoolOption(cfg.EnableVectorSearch),
	}
	for k, v := range req.TemplateParams {
		opts["param."+k] = v
	}
	return opts
}

// estimateProcessingTime mirrors the original research engine's formula:
// a 10s base scaled by research-type, query-length, and audience
// multipliers, capped at MaxProcessingTime.
func (e *Engine) estimateProcessingTime(req Request) time.Duration {
	const base = 10 * time.Second

	typeMultiplier := map[models.ResearchType]float64{
		models.ResearchLearning:        1.0,
		models.ResearchDecision:        1.2,
		models.ResearchImplementation:  1.5,
		models.ResearchTroubleshooting: 1.3,
		models.ResearchValidation:      1.1,
	}[req.ResearchType]
	if typeMultiplier == 0 {
		typeMultiplier = 1.0
	}

	lengthMultiplier := 1.0
	if len(req.Query) > 100 {
		lengthMultiplier = 1.2
	}

	audienceMultiplier := map[models.AudienceLevel]float64{
		models.AudienceBeginner:     1.1,
		models.AudienceIntermediate: 1.0,
		models.AudienceAdvanced:     1.2,
	}[req.AudienceLevel]
	if audienceMultiplier == 0 {
		audienceMultiplier = 1.0
	}

	estimate := time.Duration(float64(base) * typeMultiplier * lengthMultiplier * audienceMultiplier)
	if e.cfg.MaxProcessingTime > 0 && estimate > e.cfg.MaxProcessingTime {
		return e.cfg.MaxProcessingTime
	}
	return estimate
}

// Research executes a full research cycle: compute the request's content
// address and check the result cache, build the prompt, discover context,
// dispatch to a provider, parse the response, gate on quality, and persist
// the result under its cache key (§3, §6).
func (e *Engine) Research(ctx context.Context, req Request) (*models.ResearchResult, error) {
	start := time.Now()
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := observability.WithCorrelationID(observability.WithResearchType(e.logger, string(req.ResearchType)), correlationID)

	key := cachekey.Fingerprint(req.Query, cacheOptions(req, e.cfg))

	if e.cache != nil {
		if blob, _, err := e.cache.Get(ctx, key); err == nil {
			var cached models.ResearchResult
			if jerr := json.Unmarshal(blob, &cached); jerr == nil {
				cached.CorrelationID = correlationID
				observability.LogEvent(logger, observability.EventResearchCompleted, map[string]interface{}{
					"provider":  cached.ProviderUsed,
					"cache_key": key,
					"cached":    true,
				})
				return &cached, nil
			}
			logger.Warn().Str("cache_key", key).Msg("cached research result failed to decode, re-running")
		} else {
			var fortErr *models.Error
			if !errors.As(err, &fortErr) || fortErr.Code != models.ErrNotFound {
				logger.Warn().Err(err).Str("cache_key", key).Msg("result cache lookup failed, continuing without it")
			}
		}
	}

	complexity := ComplexityFromAudience(req.AudienceLevel)
	params := req.TemplateParams
	if params == nil {
		params = map[string]string{}
	}
	prompt, err := e.templates.Render(req.ResearchType, complexity, params)
	if err != nil {
		return nil, fmt.Errorf("build research prompt: %w", err)
	}

	contextDocs, err := discoverContext(ctx, e.retriever, req.ResearchType, req.Query, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("discover research context: %w", err)
	}
	contextSection := buildContextSection(contextDocs)

	timeout := e.estimateProcessingTime(req)
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, providerName, fallbackUsed, err := e.fallback.Execute(qctx, provider.Query{
		Text:         prompt,
		ResearchType: req.ResearchType,
		Context:      contextSection,
		MaxTokens:    e.cfg.MaxTokens,
		Temperature:  e.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("execute research query: %w", err)
	}

	sections := parseResponse(resp.Content)

	result := &models.ResearchResult{
		Query:            req.Query,
		Answer:           sections.Answer,
		Evidence:         sections.Evidence,
		Implementation:   sections.Implementation,
		ProviderUsed:     providerName,
		FallbackUsed:     fallbackUsed,
		ContextDocuments: contextDocs,
		ProcessingTime:   time.Since(start),
		CorrelationID:    correlationID,
		CacheKey:         key,
	}

	if e.cfg.EnableQualityValidation && e.quality != nil {
		score, qerr := e.quality.Score(ctx, *result)
		if qerr != nil {
			logger.Warn().Err(qerr).Msg("quality validation failed, returning result unscored")
		} else {
			result.Quality = score
			observability.LogEvent(logger, observability.EventQualityScored, map[string]interface{}{
				"composite": score.Composite,
				"provider":  providerName,
			})
			if score.Composite < e.cfg.MinQualityScore {
				result.LowQuality = true
				logger.Warn().Float64("composite", score.Composite).Float64("min", e.cfg.MinQualityScore).Msg("research result below minimum quality score")
			}
		}
	}

	observability.LogEvent(logger, observability.EventResearchCompleted, map[string]interface{}{
		"provider":        providerName,
		"fallback_used":   fallbackUsed,
		"processing_time": result.ProcessingTime.String(),
		"cache_key":       key,
	})

	e.persistResult(ctx, logger, key, req, result, contextDocs)

	return result, nil
}

// persistResult stores a freshly computed result under its cache key.
// Failure to persist is advisory: the caller already has its answer, so a
// store outage only costs a future cache hit, not this request.
func (e *Engine) persistResult(ctx context.Context, logger zerolog.Logger, key string, req Request, result *models.ResearchResult, contextDocs []models.RetrievalResult) {
	if e.cache == nil {
		return
	}

	blob, err := json.Marshal(result)
	if err != nil {
		logger.Warn().Err(err).Str("cache_key", key).Msg("failed to marshal research result for caching")
		return
	}

	sources := make([]string, 0, len(contextDocs))
	for _, d := range contextDocs {
		sources = append(sources, d.Document.ID)
	}

	var qualityScore float64
	if result.Quality != nil {
		qualityScore = result.Quality.Composite
	}

	meta := store.Meta{
		CompletedAt:      time.Now().UTC(),
		ProcessingTimeMS: result.ProcessingTime.Milliseconds(),
		SourcesConsulted: sources,
		QualityScore:     qualityScore,
		Tags: map[string]string{
			"research_type": string(req.ResearchType),
			"low_quality":   cachekey.BoolOption(result.LowQuality),
		},
	}

	if err := e.cache.Put(ctx, key, blob, meta); err != nil {
		logger.Warn().Err(err).Str("cache_key", key).Msg("failed to persist research result to cache")
	}
}
