package retrieval

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// fortitudeNamespace is the fixed UUID namespace used to derive
// deterministic point UUIDs from document IDs, as
// chunkIDToUUID does for chunk IDs.
var fortitudeNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func documentIDToUUID(id string) string {
	hash := sha256.Sum256([]byte(id))
	return uuid.NewSHA1(fortitudeNamespace, hash[:]).String()
}

// VectorStore manages embedded documents in Qdrant, adapted from
// internal/kb/vectorstore.go for Fortitude's VectorDocument
// domain in place of document chunks.
type VectorStore struct {
	client         *qdrant.Client
	collectionName string
	dimension      uint64
	logger         zerolog.Logger

	mu    sync.RWMutex
	ready bool
}

// NewVectorStore dials Qdrant and prepares (without yet creating) the
// configured collection.
func NewVectorStore(cfg config.QdrantConfig, dimension int) (*VectorStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: cfg.Host, Port: cfg.Port})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &VectorStore{
		client:         client,
		collectionName: cfg.CollectionName,
		dimension:      uint64(dimension),
		logger:         observability.Logger("retrieval.vectorstore"),
	}, nil
}

// EnsureCollection creates the collection (with a cosine-distance vector
// index) if it does not already exist.
func (vs *VectorStore) EnsureCollection(ctx context.Context) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.ready {
		return nil
	}

	collections, err := vs.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, c := range collections {
		if c == vs.collectionName {
			vs.ready = true
			return nil
		}
	}

	err = vs.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: vs.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vs.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	for _, field := range []string{"source"} {
		if _, err := vs.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: vs.collectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		}); err != nil {
			vs.logger.Warn().Err(err).Str("field", field).Msg("field index creation failed")
		}
	}

	vs.ready = true
	return nil
}

// Upsert stores or updates a single document's embedding.
func (vs *VectorStore) Upsert(ctx context.Context, doc models.VectorDocument) error {
	return vs.UpsertBatch(ctx, []models.VectorDocument{doc})
}

// UpsertBatch stores or updates multiple documents' embeddings.
func (vs *VectorStore) UpsertBatch(ctx context.Context, docs []models.VectorDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if err := vs.EnsureCollection(ctx); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		payload := map[string]any{
			"id":      d.ID,
			"content": d.Content,
			"source":  d.Source,
		}
		for k, v := range d.Metadata {
			payload[k] = v
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(documentIDToUUID(d.ID)),
			Vectors: qdrant.NewVectors(d.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := vs.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: vs.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Delete removes a document's embedding by ID.
func (vs *VectorStore) Delete(ctx context.Context, id string) error {
	_, err := vs.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: vs.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewID(documentIDToUUID(id))}},
			},
		},
	})
	return err
}

// SemanticHit is one cosine-similarity vector match.
type SemanticHit struct {
	Document models.VectorDocument
	Score    float64 // Cosine similarity in [0,1] (Qdrant reports [-1,1]; clamped).
}

// Search performs cosine-similarity search against the stored embeddings.
func (vs *VectorStore) Search(ctx context.Context, queryVector []float32, limit int, minScore float64) ([]SemanticHit, error) {
	if err := vs.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	start := time.Now()
	results, err := vs.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: vs.collectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: qdrant.PtrOf(float32(minScore)),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]SemanticHit, 0, len(results))
	for _, point := range results {
		doc := models.VectorDocument{Metadata: map[string]string{}}
		if payload := point.Payload; payload != nil {
			if v, ok := payload["id"]; ok {
				doc.ID = v.GetStringValue()
			}
			if v, ok := payload["content"]; ok {
				doc.Content = v.GetStringValue()
			}
			if v, ok := payload["source"]; ok {
				doc.Source = v.GetStringValue()
			}
			for k, v := range payload {
				switch k {
				case "id", "content", "source":
					continue
				default:
					doc.Metadata[k] = v.GetStringValue()
				}
			}
		}
		score := float64(point.Score)
		if score < 0 {
			score = 0
		}
		hits = append(hits, SemanticHit{Document: doc, Score: score})
	}

	vs.logger.Debug().Int("hits", len(hits)).Dur("duration", time.Since(start)).Msg("vector search completed")
	return hits, nil
}

// HealthCheck verifies the Qdrant connection is reachable.
func (vs *VectorStore) HealthCheck(ctx context.Context) error {
	_, err := vs.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("vector store health check: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant client connection.
func (vs *VectorStore) Close() error { return vs.client.Close() }
