package feedback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// Bucket identifies the (provider, research_type) pair the adaptation
// scheduler learns weights over.
type Bucket struct {
	Provider     string
	ResearchType models.ResearchType
}

// Scheduler runs the periodic adaptation pass named in spec.md §4.6: for
// every tracked bucket with enough samples, it folds recent feedback into
// that bucket's weight vector and emits an AdaptationApplied event with the
// before/after snapshot. Modeled on daemon.go's ticker-driven health-check
// loop (internal/daemon healthCheckLoop).
type Scheduler struct {
	store *Store
	cfg   config.FeedbackConfig

	mu      sync.Mutex
	buckets map[Bucket]struct{}
}

// NewScheduler constructs an adaptation scheduler over the given store.
func NewScheduler(store *Store, cfg config.FeedbackConfig) *Scheduler {
	return &Scheduler{
		store:   store,
		cfg:     cfg,
		buckets: make(map[Bucket]struct{}),
	}
}

// Track registers a (provider, research_type) bucket for periodic
// adaptation. Buckets are discovered as feedback is recorded; see
// (*Scheduler).Observe.
func (s *Scheduler) Track(provider string, researchType models.ResearchType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[Bucket{Provider: provider, ResearchType: researchType}] = struct{}{}
}

// Observe records a feedback event and tracks its bucket for future
// adaptation passes in the same call, so a fresh provider/research_type
// pair is picked up without a separate registration step.
func (s *Scheduler) Observe(ctx context.Context, researchType models.ResearchType, rec models.FeedbackRecord) error {
	if err := s.store.Record(ctx, researchType, rec); err != nil {
		return err
	}
	s.Track(rec.ProviderUsed, researchType)
	observability.LogEvent(observability.Logger("feedback.scheduler"), observability.EventFeedbackRecorded, map[string]interface{}{
		"provider":      rec.ProviderUsed,
		"research_type": string(researchType),
		"rating":        rec.Rating,
	})
	return nil
}

// Run blocks, applying adaptation on cfg.AdaptationInterval until ctx is
// canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.AdaptationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce applies one adaptation pass across every tracked bucket,
// returning the buckets that were actually updated.
func (s *Scheduler) RunOnce(ctx context.Context) []Bucket {
	s.mu.Lock()
	tracked := make([]Bucket, 0, len(s.buckets))
	for b := range s.buckets {
		tracked = append(tracked, b)
	}
	s.mu.Unlock()

	applied := make([]Bucket, 0, len(tracked))
	logger := observability.Logger("feedback.scheduler")
	for _, b := range tracked {
		before, after, ok, err := s.adaptBucket(ctx, b)
		if err != nil {
			observability.LogError(logger, err, "adaptation pass failed", map[string]interface{}{
				"provider":      b.Provider,
				"research_type": string(b.ResearchType),
			})
			continue
		}
		if !ok {
			continue
		}
		applied = append(applied, b)
		observability.LogEvent(logger, observability.EventAdaptationApplied, map[string]interface{}{
			"provider":       b.Provider,
			"research_type":  string(b.ResearchType),
			"weights_before": before,
			"weights_after":  after,
		})
	}
	return applied
}

// adaptBucket folds every recorded feedback sample for a bucket into its
// weight vector via the bounded online update, gated by sample count
// (min_feedback_threshold), resulting confidence (adaptation_threshold),
// and auto_apply_adaptations. It returns ok=false when the bucket isn't
// ready or auto-apply is disabled, in which case no weights are persisted.
func (s *Scheduler) adaptBucket(ctx context.Context, b Bucket) (before, after Weights, ok bool, err error) {
	records, err := s.store.List(ctx, b.Provider, b.ResearchType)
	if err != nil {
		return nil, nil, false, err
	}
	if len(records) < s.cfg.MinFeedbackThreshold {
		return nil, nil, false, nil
	}

	conf := adaptationConfidence(records)
	if conf < s.cfg.AdaptationThreshold {
		return nil, nil, false, nil
	}

	current, err := s.store.LoadWeights(ctx, b.Provider, b.ResearchType)
	if err != nil {
		return nil, nil, false, err
	}
	before = current.clone()

	updated := current
	for _, rec := range records {
		ratingError := rec.Rating - 0.5 // 0.5 is the neutral midpoint of the [0,1] rating scale
		features := rec.DimensionRatings
		if len(features) == 0 {
			continue
		}
		updated = ApplyUpdate(updated, s.cfg.LearningRate, ratingError, features)
	}
	after = updated

	if !s.cfg.AutoApplyAdaptations {
		return before, after, false, nil
	}
	if err := s.store.SaveWeights(ctx, b.Provider, b.ResearchType, updated); err != nil {
		return nil, nil, false, err
	}
	return before, after, true, nil
}

// adaptationConfidence is 1 minus the standard deviation of recorded
// ratings: tightly clustered ratings (agreement across users) yield high
// confidence that the adaptation reflects a real signal rather than noise.
func adaptationConfidence(records []models.FeedbackRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.Rating
	}
	mean := sum / float64(len(records))

	var variance float64
	for _, r := range records {
		d := r.Rating - mean
		variance += d * d
	}
	variance /= float64(len(records))
	stdev := math.Sqrt(variance)

	conf := 1 - stdev
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}
