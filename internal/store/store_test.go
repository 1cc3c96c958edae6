package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortitude-ai/fortitude/pkg/models"
)

func testStore(t *testing.T) *Store {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesOpenDB(t *testing.T) {
	s := testStore(t)
	assert.NotNil(t, s.DB())
}

func TestStore_Health_SucceedsOnOpenConnection(t *testing.T) {
	s := testStore(t)
	assert.NoError(t, s.Health(context.Background()))
}

func TestStore_PutGet_RoundTrips(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	meta := Meta{
		CompletedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ProcessingTimeMS: 1200,
		SourcesConsulted: []string{"doc-1", "doc-2"},
		QualityScore:     0.87,
		Tags:             map[string]string{"research_type": "learning"},
	}
	require.NoError(t, s.Put(ctx, "key-1", []byte(`{"answer":"hi"}`), meta))

	blob, got, err := s.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"hi"}`, string(blob))
	assert.Equal(t, meta.CompletedAt, got.CompletedAt)
	assert.Equal(t, meta.ProcessingTimeMS, got.ProcessingTimeMS)
	assert.Equal(t, meta.SourcesConsulted, got.SourcesConsulted)
	assert.InDelta(t, meta.QualityScore, got.QualityScore, 1e-9)
	assert.Equal(t, meta.Tags, got.Tags)
}

func TestStore_Put_OverwritesExistingKey(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	meta := Meta{CompletedAt: time.Now().UTC()}
	require.NoError(t, s.Put(ctx, "key-1", []byte("v1"), meta))
	require.NoError(t, s.Put(ctx, "key-1", []byte("v2"), meta))

	blob, _, err := s.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(blob))
}

func TestStore_Get_MissingKeyReturnsNotFoundError(t *testing.T) {
	s := testStore(t)
	_, _, err := s.Get(context.Background(), "missing")
	require.Error(t, err)

	var fortitudeErr *models.Error
	require.ErrorAs(t, err, &fortitudeErr)
	assert.Equal(t, models.ErrNotFound, fortitudeErr.Code)
}

func TestStore_List_FiltersByTagAndRespectsLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tag := "learning"
		if i == 2 {
			tag = "decision"
		}
		require.NoError(t, s.Put(ctx, strings.Repeat("k", i+1), []byte("v"), Meta{
			CompletedAt: time.Now().UTC(),
			Tags:        map[string]string{"research_type": tag},
		}))
	}

	all, err := s.List(ctx, Filter{}, Pagination{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	learning, err := s.List(ctx, Filter{TagKey: "research_type", TagValue: "learning"}, Pagination{})
	require.NoError(t, err)
	assert.Len(t, learning, 2)

	limited, err := s.List(ctx, Filter{}, Pagination{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_Delete_RemovesEntry(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "key-1", []byte("v"), Meta{CompletedAt: time.Now().UTC()}))
	require.NoError(t, s.Delete(ctx, "key-1"))

	_, _, err := s.Get(ctx, "key-1")
	require.Error(t, err)
}

func TestStore_Delete_AbsentKeyIsNotAnError(t *testing.T) {
	s := testStore(t)
	assert.NoError(t, s.Delete(context.Background(), "never-existed"))
}
