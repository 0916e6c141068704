package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/news-rag-server/internal/feed"
	"github.com/bull/news-rag-server/internal/storage"
)

type fakeFetcher struct {
	articles []feed.Article
	err      error
	calls    int
}

func (f *fakeFetcher) FetchArticles(ctx context.Context, targetCount int) ([]feed.Article, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.articles) > targetCount {
		return f.articles[:targetCount], nil
	}
	return f.articles, nil
}

type fakeEmbedder struct {
	texts []string
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedBatched(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	f.calls++
	f.texts = texts
	if f.err != nil {
		return nil, f.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range embeddings {
		embeddings[i] = []float32{float32(i)}
	}
	return embeddings, nil
}

type fakeStore struct {
	deleteErr  error
	upserted   int
	ops        []string
	pointCount uint64
}

func (f *fakeStore) EnsureCollection(ctx context.Context) error {
	f.ops = append(f.ops, "ensure")
	return nil
}

func (f *fakeStore) DeleteCollection(ctx context.Context) error {
	f.ops = append(f.ops, "delete")
	return f.deleteErr
}

func (f *fakeStore) UpsertArticles(ctx context.Context, articles []feed.Article, embeddings [][]float32) error {
	f.ops = append(f.ops, "upsert")
	if len(articles) != len(embeddings) {
		return storage.ErrCountMismatch
	}
	f.upserted = len(articles)
	f.pointCount = uint64(len(articles))
	return nil
}

func (f *fakeStore) Info(ctx context.Context) (*storage.CollectionInfo, error) {
	f.ops = append(f.ops, "info")
	return &storage.CollectionInfo{PointsCount: f.pointCount}, nil
}

func sampleArticles(n int) []feed.Article {
	articles := make([]feed.Article, n)
	for i := range articles {
		articles[i] = feed.Article{
			ID:      fmt.Sprintf("id-%d", i),
			Title:   fmt.Sprintf("Title %d", i),
			Content: fmt.Sprintf("Content %d", i),
		}
	}
	return articles
}

func TestInitialize(t *testing.T) {
	fetcher := &fakeFetcher{articles: sampleArticles(3)}
	embedder := &fakeEmbedder{}
	store := &fakeStore{}

	pipeline := NewPipeline(fetcher, embedder, store, 50, 10, slog.Default())
	result, err := pipeline.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.ArticlesCount)
	assert.Equal(t, uint64(3), result.PointsCount)
	assert.Equal(t, []string{"ensure", "upsert", "info"}, store.ops, "stages run in order")

	// The embedded text is the canonical title+content derivation.
	require.Len(t, embedder.texts, 3)
	assert.Equal(t, "Title 0. Content 0", embedder.texts[0])
}

func TestInitializeFailsFastOnEmptyFetch(t *testing.T) {
	fetcher := &fakeFetcher{err: feed.ErrNoArticles}
	embedder := &fakeEmbedder{}
	store := &fakeStore{}

	pipeline := NewPipeline(fetcher, embedder, store, 50, 10, slog.Default())
	_, err := pipeline.Initialize(context.Background())
	require.ErrorIs(t, err, feed.ErrNoArticles)

	assert.Zero(t, embedder.calls, "no embedding work after an empty fetch")
	assert.NotContains(t, store.ops, "upsert")
}

func TestInitializeEmbeddingFailureAborts(t *testing.T) {
	fetcher := &fakeFetcher{articles: sampleArticles(2)}
	embedder := &fakeEmbedder{err: errors.New("provider down")}
	store := &fakeStore{}

	pipeline := NewPipeline(fetcher, embedder, store, 50, 10, slog.Default())
	_, err := pipeline.Initialize(context.Background())
	require.Error(t, err)
	assert.NotContains(t, store.ops, "upsert", "no storage work after embedding failure")
}

func TestRefreshToleratesAbsentCollection(t *testing.T) {
	fetcher := &fakeFetcher{articles: sampleArticles(2)}
	embedder := &fakeEmbedder{}
	store := &fakeStore{deleteErr: fmt.Errorf("wrapped: %w", storage.ErrCollectionNotFound)}

	pipeline := NewPipeline(fetcher, embedder, store, 50, 10, slog.Default())
	result, err := pipeline.Refresh(context.Background())
	require.NoError(t, err, "refresh must not fail on deleting an absent collection")
	assert.Equal(t, 2, result.ArticlesCount)
	assert.Equal(t, []string{"delete", "ensure", "upsert", "info"}, store.ops)
}

func TestRefreshPropagatesOtherDeleteErrors(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("connection reset")}

	pipeline := NewPipeline(&fakeFetcher{}, &fakeEmbedder{}, store, 50, 10, slog.Default())
	_, err := pipeline.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"delete"}, store.ops, "rebuild must not start after a real delete failure")
}
