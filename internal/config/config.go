// Package config loads service configuration from environment variables.
// Required values are validated at load time so the process fails before
// serving traffic rather than on first use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultGeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// QdrantConfig holds vector database connection and collection settings.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	// Dimension is the embedding vector size. It is fixed at collection
	// creation time and must match every vector ever stored.
	Dimension int
}

// EmbeddingConfig holds embedding provider settings. The provider speaks the
// OpenAI embeddings API; BaseURL selects the actual backend (e.g. Jina).
type EmbeddingConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	BatchSize int
}

// LLMConfig holds generative model provider settings.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// RedisConfig holds session store connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	UseTLS   bool
}

// Config is the full service configuration.
type Config struct {
	Port        string
	Qdrant      QdrantConfig
	Embedding   EmbeddingConfig
	LLM         LLMConfig
	Redis       RedisConfig
	TopK        int
	FeedURLs    []string
	TargetCount int
	SessionTTL  time.Duration
}

// Load reads configuration from the environment. It returns an error naming
// the first missing or malformed required variable.
func Load() (*Config, error) {
	qdrantHost, err := require("QDRANT_HOST")
	if err != nil {
		return nil, err
	}
	dimension, err := requireInt("EMBEDDING_DIMENSION")
	if err != nil {
		return nil, err
	}
	embedKey, err := require("EMBEDDING_API_KEY")
	if err != nil {
		return nil, err
	}
	embedURL, err := require("EMBEDDING_BASE_URL")
	if err != nil {
		return nil, err
	}
	embedModel, err := require("EMBEDDING_MODEL")
	if err != nil {
		return nil, err
	}
	llmKey, err := require("LLM_API_KEY")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Qdrant: QdrantConfig{
			Host:       qdrantHost,
			Port:       getEnvInt("QDRANT_PORT", 6334),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     getEnvBool("QDRANT_USE_TLS", false),
			Collection: getEnv("QDRANT_COLLECTION", "news_articles"),
			Dimension:  dimension,
		},
		Embedding: EmbeddingConfig{
			APIKey:    embedKey,
			BaseURL:   embedURL,
			Model:     embedModel,
			BatchSize: getEnvInt("EMBED_BATCH_SIZE", 10),
		},
		LLM: LLMConfig{
			APIKey:  llmKey,
			BaseURL: getEnv("LLM_BASE_URL", DefaultGeminiBaseURL),
			Model:   getEnv("LLM_MODEL", "gemini-2.5-flash"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: os.Getenv("REDIS_PASSWORD"),
			UseTLS:   getEnvBool("REDIS_TLS", false),
		},
		TopK:        getEnvInt("TOP_K_RESULTS", 5),
		TargetCount: getEnvInt("ARTICLE_TARGET_COUNT", 50),
		SessionTTL:  getEnvDuration("SESSION_TTL", 24*time.Hour),
	}

	if feeds := os.Getenv("NEWS_FEEDS"); feeds != "" {
		for _, u := range strings.Split(feeds, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.FeedURLs = append(cfg.FeedURLs, u)
			}
		}
	}

	return cfg, nil
}

func require(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("missing required environment variable: %s", key)
	}
	return v, nil
}

func requireInt(key string) (int, error) {
	v, err := require(key)
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer, got %q", key, v)
	}
	return i, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
