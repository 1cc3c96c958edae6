// Package observability provides logging for Fortitude.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging configures the global logger based on the provided settings.
func SetupLogging(level, format string, output io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339

	if format == "console" || format == "text" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Caller().Logger()
}

// SetupDefaultLogging sets up logging with sensible defaults.
func SetupDefaultLogging(level string) {
	SetupLogging(level, "json", os.Stderr)
}

// Logger returns a contextualized logger for a component.
func Logger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithCorrelationID adds a request correlation id to logger context.
func WithCorrelationID(logger zerolog.Logger, correlationID string) zerolog.Logger {
	return logger.With().Str("correlation_id", correlationID).Logger()
}

// WithProvider adds a provider name to logger context.
func WithProvider(logger zerolog.Logger, provider string) zerolog.Logger {
	return logger.With().Str("provider", provider).Logger()
}

// WithResearchType adds a research type to logger context.
func WithResearchType(logger zerolog.Logger, researchType string) zerolog.Logger {
	return logger.With().Str("research_type", researchType).Logger()
}

// Event types for structured logging across Fortitude's five subsystems.
const (
	EventClassified        = "classified"
	EventFallbackUsed       = "fallback_used"
	EventProviderSelected   = "provider_selected"
	EventProviderFailed     = "provider_failed"
	EventCircuitOpened      = "circuit_opened"
	EventCircuitHalfOpen    = "circuit_half_open"
	EventCircuitClosed      = "circuit_closed"
	EventRetryAttempt       = "retry_attempt"
	EventSearchCompleted    = "search_completed"
	EventEmbeddingCacheHit  = "embedding_cache_hit"
	EventEmbeddingCacheMiss = "embedding_cache_miss"
	EventResearchCompleted  = "research_completed"
	EventQualityScored      = "quality_scored"
	EventQualityAnomaly     = "quality_anomaly"
	EventAdaptationApplied  = "adaptation_applied"
	EventFeedbackRecorded   = "feedback_recorded"
)

// LogEvent logs a structured event.
func LogEvent(logger zerolog.Logger, event string, fields map[string]interface{}) {
	e := logger.Info().Str("event", event)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg("")
}

// LogError logs an error with context.
func LogError(logger zerolog.Logger, err error, message string, fields map[string]interface{}) {
	e := logger.Error().Err(err)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(message)
}

// SanitizeForLog removes sensitive data from a map before logging.
func SanitizeForLog(data map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{})
	sensitiveKeys := map[string]bool{
		"password":     true,
		"secret":       true,
		"token":        true,
		"api_key":      true,
		"apikey":       true,
		"access_token": true,
		"private_key":  true,
		"credentials":  true,
	}

	for k, v := range data {
		if sensitiveKeys[k] {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}

	return sanitized
}
