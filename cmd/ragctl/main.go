// Package main provides the operational CLI for the news RAG index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/news-rag-server/internal/config"
	"github.com/bull/news-rag-server/internal/embedding"
	"github.com/bull/news-rag-server/internal/feed"
	"github.com/bull/news-rag-server/internal/ingest"
	"github.com/bull/news-rag-server/internal/llm"
	"github.com/bull/news-rag-server/internal/rag"
	"github.com/bull/news-rag-server/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "News RAG index management tool",
	Long:  "CLI tool for building, refreshing, and querying the news article vector index in Qdrant",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the vector index from the configured news feeds",
	Long: `Fetches news articles, embeds them, and loads them into Qdrant.

This command:
1. Connects to Qdrant and verifies health
2. Ensures the article collection exists
3. Fetches articles from the configured RSS feeds
4. Generates embeddings in paced batches
5. Stores articles with their vectors and verifies the point count`,
	RunE: runIngest,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Delete the collection and rebuild it from scratch",
	RunE:  runRefresh,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question against the current index",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(askCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	pipeline, store, _, err := buildComponents()
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := pipeline.Initialize(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	printResult(result)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	pipeline, store, _, err := buildComponents()
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := pipeline.Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	printResult(result)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	_, store, answerer, err := buildComponents()
	if err != nil {
		return err
	}
	defer store.Close()

	answer, err := answerer.AnswerQuery(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(answer.Answer)
	fmt.Println()
	fmt.Println("Sources:")
	for i, source := range answer.Sources {
		fmt.Printf("  %d. %s (%s, score %.3f)\n", i+1, source.Title, source.Source, source.RelevanceScore)
	}
	return nil
}

func buildComponents() (*ingest.Pipeline, *storage.Store, *rag.Answerer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := slog.Default()

	store, err := storage.NewStore(cfg.Qdrant, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	if err := store.Health(context.Background()); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("qdrant health check failed: %w", err)
	}

	embeddingClient, err := embedding.NewClient(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	embedder := embedding.NewEmbedder(embeddingClient, cfg.Embedding.BatchSize)

	generator, err := llm.NewGenerator(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	fetcher := feed.NewFetcher(cfg.FeedURLs, logger)
	pipeline := ingest.NewPipeline(fetcher, embedder, store, cfg.TargetCount, cfg.Embedding.BatchSize, logger)
	answerer := rag.NewAnswerer(embedder, store, generator, cfg.TopK, logger)

	return pipeline, store, answerer, nil
}

func printResult(result *ingest.Result) {
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Articles: %d\n", result.ArticlesCount)
	fmt.Printf("  Points:   %d\n", result.PointsCount)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))
}
