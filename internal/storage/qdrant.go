// Package storage owns the lifecycle of the news article collection in
// Qdrant: existence, bulk upsert, nearest-neighbor search, and inspection.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/news-rag-server/internal/config"
	"github.com/bull/news-rag-server/internal/feed"
)

// upsertBatchSize bounds peak memory and gives per-batch failure
// attribution; each batch is acknowledged before the next is issued.
const upsertBatchSize = 100

// Store wraps the Qdrant client with collection management for one named
// collection. Dimension and distance metric are fixed at creation time.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
	logger     *slog.Logger
}

// NewStore creates a Qdrant client and validates connectivity. The health
// check retries with exponential backoff so the process fails fast, but not
// flakily, when Qdrant is still coming up.
func NewStore(cfg config.QdrantConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &Store{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		logger:     logger,
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs a health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the article collection with the configured
// vector dimension and cosine distance if it does not already exist.
// Idempotent, which makes ingestion idempotent with respect to collection
// existence.
func (s *Store) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	s.logger.Info("created collection", "name", s.collection, "dimension", s.dimension)
	return nil
}

// DeleteCollection removes the collection. Deleting an absent collection is
// a reported error, not swallowed; refresh handles the tolerant case.
func (s *Store) DeleteCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, s.collection)
	}

	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	s.logger.Info("deleted collection", "name", s.collection)
	return nil
}

// UpsertArticles stores articles with their embeddings. Entries get
// sequential numeric ids starting at 1; the caller always writes onto a
// freshly created empty collection, so ids never collide. Writes go out in
// fixed-size batches, each synchronously acknowledged before the next.
func (s *Store) UpsertArticles(ctx context.Context, articles []feed.Article, embeddings [][]float32) error {
	if len(articles) != len(embeddings) {
		return fmt.Errorf("%w: %d articles, %d embeddings", ErrCountMismatch, len(articles), len(embeddings))
	}

	for i, embedding := range embeddings {
		if len(embedding) != s.dimension {
			return fmt.Errorf("%w: article %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(embedding), s.dimension)
		}
	}

	points := make([]*qdrant.PointStruct, len(articles))
	for i, article := range articles {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i + 1)),
			Vectors: qdrant.NewVectorsDense(embeddings[i]),
			Payload: qdrant.NewValueMap(map[string]any{
				"uuid":     article.ID,
				"title":    article.Title,
				"content":  article.Content,
				"link":     article.Link,
				"pubDate":  article.PublishedAt.Format(time.RFC3339),
				"source":   article.Source,
				"category": article.Category,
			}),
		}
	}

	for i := 0; i < len(points); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(points))

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points[i:end],
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
		s.logger.Debug("stored batch", "from", i, "to", end)
	}

	s.logger.Info("stored articles", "count", len(articles))
	return nil
}

// Search returns up to limit documents ordered by descending cosine
// similarity to the query vector.
func (s *Store) Search(ctx context.Context, queryVector []float32, limit int) ([]RetrievedDocument, error) {
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	docs := make([]RetrievedDocument, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		docs = append(docs, RetrievedDocument{
			Score:    result.Score,
			Title:    payload["title"].GetStringValue(),
			Content:  payload["content"].GetStringValue(),
			Source:   payload["source"].GetStringValue(),
			Link:     payload["link"].GetStringValue(),
			Category: payload["category"].GetStringValue(),
		})
	}

	return docs, nil
}

// Info returns collection statistics for verification and observability.
func (s *Store) Info(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}
	return &CollectionInfo{PointsCount: collection.GetPointsCount()}, nil
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
