package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// handle pairs a registered Provider with its circuit breaker and rolling
// health metrics, guarded for concurrent access from the fallback engine
// and any background health-check loop.
type handle struct {
	provider Provider
	breaker  *CircuitBreaker

	mu     sync.Mutex
	health models.HealthMetrics
}

func (h *handle) snapshotHealth() models.HealthMetrics {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap := h.health
	snap.CircuitState = h.breaker.State()
	return snap
}

func (h *handle) recordOutcome(ok bool, latency time.Duration, errMsg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	const smoothing = 0.2 // exponential moving average weight for new samples
	if ok {
		h.health.SuccessRate = h.health.SuccessRate*(1-smoothing) + smoothing
		h.health.ConsecutiveFailures = 0
		h.health.LastError = ""
	} else {
		h.health.SuccessRate = h.health.SuccessRate * (1 - smoothing)
		h.health.ConsecutiveFailures++
		h.health.LastError = errMsg
	}
	if h.health.AverageLatency == 0 {
		h.health.AverageLatency = latency
	} else {
		h.health.AverageLatency = time.Duration(float64(h.health.AverageLatency)*(1-smoothing) + float64(latency)*smoothing)
	}
	h.health.LastCheckedAt = time.Now()
}

// FallbackEngine selects among registered providers using a pluggable
// Strategy, retries with jittered backoff, and circuit-breaks unhealthy
// providers before falling back to the next candidate (§4.2).
type FallbackEngine struct {
	cfg      config.ProviderConfig
	strategy Strategy
	logger   zerolog.Logger

	mu       sync.RWMutex
	handles  []*handle
}

// NewFallbackEngine creates an engine with the strategy named in cfg.Strategy.
func NewFallbackEngine(cfg config.ProviderConfig) *FallbackEngine {
	return &FallbackEngine{
		cfg:      cfg,
		strategy: StrategyByName(cfg.Strategy),
		logger:   observability.Logger("provider.fallback"),
	}
}

// Register adds a provider to the fallback pool with a fresh circuit breaker.
func (e *FallbackEngine) Register(p Provider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handles = append(e.handles, &handle{
		provider: p,
		breaker:  NewCircuitBreaker(e.cfg.CircuitBreaker),
	})
}

// Execute runs a query against the provider pool, trying candidates in the
// strategy's order until one succeeds, one fails with a non-retryable
// error (which terminates the loop immediately and surfaces to the
// caller, per §4.2), or all candidates are exhausted. It reports whether a
// fallback (a provider other than the first candidate) was used; the flag
// is reported as is and no score or confidence is adjusted for it.
func (e *FallbackEngine) Execute(ctx context.Context, q Query) (*Response, string, bool, error) {
	e.mu.RLock()
	handles := e.strategy.Order(e.handles)
	e.mu.RUnlock()

	if len(handles) == 0 {
		return nil, "", false, models.NewError(models.ErrServiceUnavailable, "no research providers registered")
	}

	var lastErr error
	for i, h := range handles {
		if !h.breaker.Allow() {
			continue
		}

		if err := h.provider.ValidateQuery(q); err != nil {
			return nil, h.provider.Name(), i > 0, err
		}

		start := time.Now()
		var resp *Response
		decision, err := withRetry(ctx, e.cfg.MaxRetries, e.cfg.BackoffBase, e.cfg.BackoffMax, e.cfg.JitterFactor, func() error {
			var innerErr error
			resp, innerErr = h.provider.ResearchQuery(ctx, q)
			return innerErr
		})
		latency := time.Since(start)

		if err == nil {
			h.breaker.RecordSuccess()
			h.recordOutcome(true, latency, "")
			observability.LogEvent(e.logger, observability.EventProviderSelected, map[string]interface{}{
				"provider": h.provider.Name(),
				"attempts": decision.attempts,
				"fallback": i > 0,
			})
			return resp, h.provider.Name(), i > 0, nil
		}

		h.breaker.RecordFailure()
		h.recordOutcome(false, latency, err.Error())
		observability.LogEvent(e.logger, observability.EventProviderFailed, map[string]interface{}{
			"provider": h.provider.Name(),
			"attempts": decision.attempts,
			"error":    err.Error(),
		})
		lastErr = err

		var fortErr *models.Error
		if errors.As(err, &fortErr) && !fortErr.Retryable() {
			return nil, h.provider.Name(), i > 0, fmt.Errorf("provider %s returned a non-retryable error: %w", h.provider.Name(), err)
		}
	}

	if lastErr == nil {
		lastErr = models.NewError(models.ErrCircuitOpen, "all providers unavailable (circuit open)")
	}
	return nil, "", true, fmt.Errorf("all providers exhausted: %w", lastErr)
}

// Health returns a snapshot of every registered provider's health, for the
// external metrics interface (§6).
func (e *FallbackEngine) Health() []models.HealthMetrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.HealthMetrics, 0, len(e.handles))
	for _, h := range e.handles {
		snap := h.snapshotHealth()
		snap.Provider = h.provider.Name()
		out = append(out, snap)
	}
	return out
}
