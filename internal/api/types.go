// Package api exposes the chat service over a JSON HTTP surface.
package api

import (
	"time"

	"github.com/bull/news-rag-server/internal/rag"
	"github.com/bull/news-rag-server/internal/session"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// ChatResponse is the reply to POST /chat.
type ChatResponse struct {
	SessionID string      `json:"sessionId"`
	Answer    *rag.Answer `json:"answer"`
	Timestamp time.Time   `json:"timestamp"`
}

// CreateSessionResponse is the reply to POST /session/create.
type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// HistoryResponse is the reply to GET /session/{id}/history.
type HistoryResponse struct {
	SessionID string            `json:"sessionId"`
	History   []session.Message `json:"history"`
}

// RefreshResponse is the reply to POST /refresh-rag.
type RefreshResponse struct {
	Message       string `json:"message"`
	ArticlesCount int    `json:"articlesCount"`
	PointsCount   uint64 `json:"pointsCount"`
	Duration      string `json:"duration"`
}

// MessageResponse is a generic confirmation reply.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the JSON error envelope. Only the message text of
// downstream errors is exposed, never the error objects themselves.
type ErrorResponse struct {
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}
