package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fortitude-ai/fortitude/pkg/models"
)

// MockProvider is a deterministic Provider test double used by this
// package's tests and by internal/research's tests to exercise the
// fallback engine without a live Ollama/Anthropic backend, mirroring
// provider_trait_tests.rs's MockProvider used under Arc across tokio::spawn.
type MockProvider struct {
	NamedAs  string
	Meta     models.ProviderMetadata
	Response *Response
	Err      error
	Delay    time.Duration

	mu       sync.Mutex
	calls    int64
	requests int64
	tokens   int64
}

// NewMockProvider creates a mock that always succeeds with a canned response.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		NamedAs:  name,
		Meta:     models.ProviderMetadata{Name: name, SupportedTypes: []models.ResearchType{models.ResearchLearning}},
		Response: &Response{Content: "## Answer\nmock answer\n", TokensUsed: 10},
	}
}

func (m *MockProvider) Name() string                       { return m.NamedAs }
func (m *MockProvider) Metadata() models.ProviderMetadata   { return m.Meta }
func (m *MockProvider) EstimateCost(tokens int) float64     { return float64(tokens) * 0.0001 }
func (m *MockProvider) ValidateQuery(q Query) error         { return ValidateQuery(q, 100000) }

func (m *MockProvider) UsageStats() UsageStats {
	return UsageStats{
		TotalRequests: atomic.LoadInt64(&m.requests),
		TotalTokens:   atomic.LoadInt64(&m.tokens),
	}
}

// ResearchQuery returns the configured canned Response or Err, simulating
// latency via Delay; safe for concurrent use across goroutines.
func (m *MockProvider) ResearchQuery(ctx context.Context, q Query) (*Response, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	err := m.Err
	resp := m.Response
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&m.requests, 1)
	atomic.AddInt64(&m.tokens, int64(resp.TokensUsed))
	return resp, nil
}

func (m *MockProvider) HealthCheck(ctx context.Context) (*models.HealthMetrics, error) {
	m.mu.Lock()
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return &models.HealthMetrics{Provider: m.NamedAs, CircuitState: models.CircuitOpen}, err
	}
	return &models.HealthMetrics{Provider: m.NamedAs, CircuitState: models.CircuitClosed, SuccessRate: 1}, nil
}

// Calls reports how many times ResearchQuery was invoked, for assertions.
func (m *MockProvider) Calls() int64 { return atomic.LoadInt64(&m.calls) }

// SetError switches the mock to fail subsequent calls with err.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
