// Package main runs the news RAG chat API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/news-rag-server/internal/api"
	"github.com/bull/news-rag-server/internal/config"
	"github.com/bull/news-rag-server/internal/embedding"
	"github.com/bull/news-rag-server/internal/feed"
	"github.com/bull/news-rag-server/internal/ingest"
	"github.com/bull/news-rag-server/internal/llm"
	"github.com/bull/news-rag-server/internal/rag"
	"github.com/bull/news-rag-server/internal/session"
	"github.com/bull/news-rag-server/internal/storage"
)

func main() {
	// Load .env if present (local development), ignore if missing.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, err := storage.NewStore(cfg.Qdrant, logger)
	if err != nil {
		logger.Error("failed to connect to qdrant", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sessions, err := session.NewStore(cfg.Redis, cfg.SessionTTL, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	embeddingClient, err := embedding.NewClient(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model)
	if err != nil {
		logger.Error("failed to create embedding client", "error", err)
		os.Exit(1)
	}
	embedder := embedding.NewEmbedder(embeddingClient, cfg.Embedding.BatchSize)

	generator, err := llm.NewGenerator(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	if err != nil {
		logger.Error("failed to create LLM client", "error", err)
		os.Exit(1)
	}

	fetcher := feed.NewFetcher(cfg.FeedURLs, logger)
	pipeline := ingest.NewPipeline(fetcher, embedder, store, cfg.TargetCount, cfg.Embedding.BatchSize, logger)
	answerer := rag.NewAnswerer(embedder, store, generator, cfg.TopK, logger)

	handlers := api.NewHandlers(answerer, pipeline, sessions, logger)
	router := api.NewRouter(handlers, api.NewHealthHandler(store), logger)

	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
