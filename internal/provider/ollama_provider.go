package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// OllamaProvider implements Provider against a local Ollama daemon, adapted
// from the internal/ai package's ollama.go chat-retry pattern but using the
// official Ollama API client (as internal/kb/embeddings.go does) rather than
// a hand-rolled net/http client.
type OllamaProvider struct {
	cfg    config.OllamaProviderConfig
	client *api.Client
	logger zerolog.Logger

	requests int64
	tokens   int64
}

// NewOllamaProvider creates an Ollama-backed research provider.
func NewOllamaProvider(cfg config.OllamaProviderConfig) (*OllamaProvider, error) {
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama endpoint: %w", err)
	}
	return &OllamaProvider{
		cfg:    cfg,
		client: api.NewClient(endpoint, http.DefaultClient),
		logger: observability.Logger("provider.ollama"),
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Metadata() models.ProviderMetadata {
	return models.ProviderMetadata{
		Name: "ollama",
		SupportedTypes: []models.ResearchType{
			models.ResearchLearning, models.ResearchImplementation,
			models.ResearchTroubleshooting, models.ResearchDecision,
			models.ResearchValidation,
		},
		CostPerThousandTokens: 0, // local inference, no per-token billing
		MaxContextTokens:      8192,
		Priority:              1,
	}
}

func (p *OllamaProvider) ValidateQuery(q Query) error {
	return ValidateQuery(q, p.Metadata().MaxContextTokens)
}

func (p *OllamaProvider) EstimateCost(tokens int) float64 { return 0 }

func (p *OllamaProvider) UsageStats() UsageStats {
	return UsageStats{
		TotalRequests: atomic.LoadInt64(&p.requests),
		TotalTokens:   atomic.LoadInt64(&p.tokens),
	}
}

// ResearchQuery sends a single chat request and collects the streamed
// response into one string, mapping transport failures onto the retryable
// error taxonomy so the fallback engine's retry loop can act on them.
func (p *OllamaProvider) ResearchQuery(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()

	streamFalse := false
	req := &api.ChatRequest{
		Model: p.cfg.Model,
		Messages: []api.Message{
			{Role: "system", Content: "Answer with an '## Answer', '## Evidence', and '## Implementation' section."},
			{Role: "user", Content: p.buildPrompt(q)},
		},
		Stream: &streamFalse,
		Options: map[string]interface{}{
			"temperature": q.Temperature,
		},
	}

	var content string
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, models.Wrap(models.ErrTimeout, "ollama chat timed out", err)
		}
		return nil, models.Wrap(models.ErrServiceUnavailable, "ollama chat failed", err)
	}
	if content == "" {
		return nil, models.NewError(models.ErrQueryFailed, "ollama returned an empty response")
	}

	atomic.AddInt64(&p.requests, 1)
	tokens := len(content) / 4
	atomic.AddInt64(&p.tokens, int64(tokens))

	return &Response{Content: content, TokensUsed: tokens, Latency: time.Since(start)}, nil
}

func (p *OllamaProvider) buildPrompt(q Query) string {
	var b strings.Builder
	if q.Context != "" {
		b.WriteString("Context:\n")
		b.WriteString(q.Context)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(q.Text)
	return b.String()
}

// HealthCheck verifies the configured model is reachable.
func (p *OllamaProvider) HealthCheck(ctx context.Context) (*models.HealthMetrics, error) {
	_, err := p.client.Show(ctx, &api.ShowRequest{Model: p.cfg.Model})
	metrics := &models.HealthMetrics{Provider: p.Name(), LastCheckedAt: time.Now()}
	if err != nil {
		metrics.LastError = err.Error()
		metrics.CircuitState = models.CircuitOpen
		return metrics, models.Wrap(models.ErrServiceUnavailable, "ollama health check failed", err)
	}
	metrics.SuccessRate = 1
	metrics.CircuitState = models.CircuitClosed
	return metrics, nil
}
