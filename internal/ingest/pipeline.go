// Package ingest rebuilds the article vector index from scratch: fetch,
// embed, store, verify.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/news-rag-server/internal/feed"
	"github.com/bull/news-rag-server/internal/storage"
)

// ArticleFetcher produces the candidate article pool.
type ArticleFetcher interface {
	FetchArticles(ctx context.Context, targetCount int) ([]feed.Article, error)
}

// BatchEmbedder embeds texts in paced batches.
type BatchEmbedder interface {
	EmbedBatched(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

// VectorStore is the collection lifecycle the pipeline drives.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	DeleteCollection(ctx context.Context) error
	UpsertArticles(ctx context.Context, articles []feed.Article, embeddings [][]float32) error
	Info(ctx context.Context) (*storage.CollectionInfo, error)
}

// Result summarizes a completed ingestion run.
type Result struct {
	ArticlesCount int           `json:"articlesCount"`
	PointsCount   uint64        `json:"pointsCount"`
	Duration      time.Duration `json:"duration"`
}

// Pipeline orchestrates index builds. It does not coordinate concurrent
// invocations with each other or with queries: a Refresh racing a search can
// transiently observe an absent or partially populated collection.
type Pipeline struct {
	fetcher     ArticleFetcher
	embedder    BatchEmbedder
	store       VectorStore
	targetCount int
	batchSize   int
	logger      *slog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(fetcher ArticleFetcher, embedder BatchEmbedder, store VectorStore, targetCount, batchSize int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:     fetcher,
		embedder:    embedder,
		store:       store,
		targetCount: targetCount,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Initialize runs the full build: ensure collection, fetch articles, derive
// embedding texts, embed in batches, store, and read back collection info.
// It fails fast on an empty fetch before any embedding work is attempted.
func (p *Pipeline) Initialize(ctx context.Context) (*Result, error) {
	start := time.Now()
	p.logger.Info("starting ingestion")

	if err := p.store.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	articles, err := p.fetcher.FetchArticles(ctx, p.targetCount)
	if err != nil {
		return nil, fmt.Errorf("fetch articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, feed.ErrNoArticles
	}

	texts := make([]string, len(articles))
	for i, article := range articles {
		texts[i] = feed.EmbeddingText(article)
	}

	embeddings, err := p.embedder.EmbedBatched(ctx, texts, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}

	if err := p.store.UpsertArticles(ctx, articles, embeddings); err != nil {
		return nil, fmt.Errorf("store articles: %w", err)
	}

	info, err := p.store.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify collection: %w", err)
	}

	result := &Result{
		ArticlesCount: len(articles),
		PointsCount:   info.PointsCount,
		Duration:      time.Since(start),
	}
	p.logger.Info("ingestion complete",
		"articles", result.ArticlesCount,
		"points", result.PointsCount,
		"duration", result.Duration,
	)
	return result, nil
}

// Refresh deletes the collection and rebuilds it from scratch. A collection
// that does not yet exist is tolerated on the deletion step. This is a full
// rebuild, not an incremental update.
func (p *Pipeline) Refresh(ctx context.Context) (*Result, error) {
	p.logger.Info("refreshing vector collection")

	if err := p.store.DeleteCollection(ctx); err != nil {
		if !errors.Is(err, storage.ErrCollectionNotFound) {
			return nil, fmt.Errorf("delete collection: %w", err)
		}
		p.logger.Info("collection already absent, skipping delete")
	}

	return p.Initialize(ctx)
}
