//go:build integration

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/news-rag-server/internal/config"
	"github.com/bull/news-rag-server/internal/feed"
)

const testDimension = 4

// setupTestStore creates a store against a local Qdrant with a unique
// collection per test. Skips when Qdrant is not running.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(config.QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "test-news-" + uuid.New().String(),
		Dimension:  testDimension,
	}, slog.Default())
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	t.Cleanup(func() {
		_ = store.DeleteCollection(context.Background())
		store.Close()
	})
	return store
}

func testArticles(n int) ([]feed.Article, [][]float32) {
	articles := make([]feed.Article, n)
	embeddings := make([][]float32, n)
	for i := range articles {
		articles[i] = feed.Article{
			ID:          uuid.New().String(),
			Title:       fmt.Sprintf("Article %d", i),
			Content:     fmt.Sprintf("Content of article %d", i),
			Link:        fmt.Sprintf("https://example.com/%d", i),
			PublishedAt: time.Now().UTC(),
			Source:      "Test Wire",
			Category:    "General",
		}
		// Distinct directions so scores differ.
		vec := make([]float32, testDimension)
		vec[i%testDimension] = 1
		vec[(i+1)%testDimension] = float32(i) / float32(n)
		embeddings[i] = vec
	}
	return articles, embeddings
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx))
	require.NoError(t, store.EnsureCollection(ctx), "second call must be a no-op, not an error")
}

func TestDeleteAbsentCollection(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.DeleteCollection(ctx)
	require.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestUpsertSearchRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx))

	const k = 7
	articles, embeddings := testArticles(k)
	require.NoError(t, store.UpsertArticles(ctx, articles, embeddings))

	info, err := store.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(k), info.PointsCount)

	docs, err := store.Search(ctx, embeddings[0], 5)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.LessOrEqual(t, len(docs), 5)

	for i := 1; i < len(docs); i++ {
		assert.GreaterOrEqual(t, docs[i-1].Score, docs[i].Score, "scores must be non-increasing")
	}

	top := docs[0]
	assert.Equal(t, articles[0].Title, top.Title)
	assert.Equal(t, articles[0].Content, top.Content)
	assert.Equal(t, articles[0].Source, top.Source)
	assert.Equal(t, articles[0].Link, top.Link)
	assert.Equal(t, articles[0].Category, top.Category)
}

func TestSearchFewerThanLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx))

	articles, embeddings := testArticles(2)
	require.NoError(t, store.UpsertArticles(ctx, articles, embeddings))

	docs, err := store.Search(ctx, embeddings[0], 10)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestUpsertCountMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx))

	articles, embeddings := testArticles(3)
	err := store.UpsertArticles(ctx, articles, embeddings[:2])
	require.ErrorIs(t, err, ErrCountMismatch)
}

func TestUpsertDimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx))

	articles, _ := testArticles(1)
	err := store.UpsertArticles(ctx, articles, [][]float32{{1, 2}})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearchDimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx))

	_, err := store.Search(ctx, []float32{1}, 5)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}
