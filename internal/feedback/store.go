// Package feedback implements feedback collection and adaptive weight
// learning (§4.6): an append-only record store, a bounded online weight
// update, and a periodic adaptation scheduler.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// bucketKey names the per-(provider, research_type) feedback list, the
// unit the adaptation scheduler samples and learns over.
func bucketKey(provider string, researchType models.ResearchType) string {
	return fmt.Sprintf("fortitude:feedback:%s:%s", provider, researchType)
}

func weightsKey(provider string, researchType models.ResearchType) string {
	return fmt.Sprintf("fortitude:weights:%s:%s", provider, researchType)
}

// Store is an append-only feedback log and per-bucket weight table backed
// by Redis, adapted from FalkorDBStore's connection pattern
// (redis.NewClient + Ping health check) generalized from a graph store to
// a list/hash-backed feedback log.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis at the configured address.
func NewStore(cfg config.FeedbackConfig) *Store {
	return &Store{client: redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})}
}

// Record appends a feedback record to its (provider, research_type)
// bucket. The log is append-only: records are never mutated or deleted by
// this method, per spec.md §5's "append-only log with bounded buffer".
func (s *Store) Record(ctx context.Context, researchType models.ResearchType, rec models.FeedbackRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal feedback record: %w", err)
	}
	key := bucketKey(rec.ProviderUsed, researchType)
	if err := s.client.RPush(ctx, key, blob).Err(); err != nil {
		return fmt.Errorf("append feedback record: %w", err)
	}
	return nil
}

// List returns every feedback record recorded for a (provider,
// research_type) bucket, oldest first.
func (s *Store) List(ctx context.Context, provider string, researchType models.ResearchType) ([]models.FeedbackRecord, error) {
	raw, err := s.client.LRange(ctx, bucketKey(provider, researchType), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list feedback records: %w", err)
	}
	records := make([]models.FeedbackRecord, 0, len(raw))
	for _, blob := range raw {
		var rec models.FeedbackRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal feedback record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Count reports how many feedback records a bucket holds, the sample size
// the adaptation threshold gates on.
func (s *Store) Count(ctx context.Context, provider string, researchType models.ResearchType) (int64, error) {
	n, err := s.client.LLen(ctx, bucketKey(provider, researchType)).Result()
	if err != nil {
		return 0, fmt.Errorf("count feedback records: %w", err)
	}
	return n, nil
}

// LoadWeights fetches the current weight vector for a bucket, or an empty
// map if none has been stored yet.
func (s *Store) LoadWeights(ctx context.Context, provider string, researchType models.ResearchType) (Weights, error) {
	raw, err := s.client.HGetAll(ctx, weightsKey(provider, researchType)).Result()
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	weights := make(Weights, len(raw))
	for k, v := range raw {
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
			continue
		}
		weights[k] = f
	}
	return weights, nil
}

// SaveWeights persists a bucket's updated weight vector.
func (s *Store) SaveWeights(ctx context.Context, provider string, researchType models.ResearchType, w Weights) error {
	if len(w) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(w))
	for k, v := range w {
		fields[k] = v
	}
	if err := s.client.HSet(ctx, weightsKey(provider, researchType), fields).Err(); err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	return nil
}

// HealthCheck verifies the Redis connection is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
