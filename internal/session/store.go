// Package session keeps an append-only per-session message log in Redis.
// Every append re-arms the session's expiry, so activity keeps a session
// alive and inactivity reclaims it.
package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bull/news-rag-server/internal/config"
)

// DefaultTTL is the sliding expiry window for a session.
const DefaultTTL = 24 * time.Hour

// Message is one conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is a Redis-backed conversation log. Storage for a session is
// created lazily on first append.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore connects to Redis and verifies connectivity with a ping.
func NewStore(cfg config.RedisConfig, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("connected to redis", "addr", opts.Addr)
	return &Store{client: client, ttl: ttl, logger: logger}, nil
}

// NewStoreWithClient wraps an existing Redis client. Used in tests.
func NewStoreWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, ttl: ttl, logger: logger}
}

// CreateSession generates a fresh session identifier. No backing storage is
// allocated until the first append.
func (s *Store) CreateSession() string {
	return uuid.New().String()
}

// AddMessage appends a message to the session log and re-arms the expiry.
func (s *Store) AddMessage(ctx context.Context, sessionID, role, content string) error {
	message := Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	key := sessionKey(sessionID)
	if err := s.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session expiry: %w", err)
	}

	return nil
}

// GetHistory returns the session's messages in append order. A session that
// never existed or already expired yields an empty slice, indistinguishable
// from an existing empty session.
func (s *Store) GetHistory(ctx context.Context, sessionID string) ([]Message, error) {
	entries, err := s.client.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session history: %w", err)
	}

	messages := make([]Message, 0, len(entries))
	for _, entry := range entries {
		var message Message
		if err := json.Unmarshal([]byte(entry), &message); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, message)
	}

	return messages, nil
}

// ClearSession deletes the session log immediately, independent of TTL.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
