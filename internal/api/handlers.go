package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/bull/news-rag-server/internal/ingest"
	"github.com/bull/news-rag-server/internal/rag"
	"github.com/bull/news-rag-server/internal/session"
)

// QueryAnswerer answers a question grounded in retrieved articles.
type QueryAnswerer interface {
	AnswerQuery(ctx context.Context, question string) (*rag.Answer, error)
}

// Refresher rebuilds the vector collection from scratch.
type Refresher interface {
	Refresh(ctx context.Context) (*ingest.Result, error)
}

// SessionStore is the conversation log consumed by the handlers.
type SessionStore interface {
	CreateSession() string
	AddMessage(ctx context.Context, sessionID, role, content string) error
	GetHistory(ctx context.Context, sessionID string) ([]session.Message, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// Handlers holds the request handlers and their dependencies. Components
// are constructed once at the composition root and shared by reference
// across requests.
type Handlers struct {
	answerer QueryAnswerer
	ingestor Refresher
	sessions SessionStore
	logger   *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(answerer QueryAnswerer, ingestor Refresher, sessions SessionStore, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		answerer: answerer,
		ingestor: ingestor,
		sessions: sessions,
		logger:   logger,
	}
}

// CreateSession handles POST /session/create.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessions.CreateSession()
	writeJSON(w, http.StatusOK, CreateSessionResponse{SessionID: sessionID})
}

// Chat handles POST /chat: it logs the user message, runs the RAG query,
// logs the assistant answer, and returns both answer and sources.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "sessionId and message are required")
		return
	}

	ctx := r.Context()

	if err := h.sessions.AddMessage(ctx, req.SessionID, "user", req.Message); err != nil {
		h.logger.Error("failed to record user message", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	answer, err := h.answerer.AnswerQuery(ctx, req.Message)
	if err != nil {
		h.logger.Error("chat query failed", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.sessions.AddMessage(ctx, req.SessionID, "assistant", answer.Answer); err != nil {
		h.logger.Error("failed to record assistant message", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: req.SessionID,
		Answer:    answer,
		Timestamp: time.Now().UTC(),
	})
}

// RefreshRAG handles POST /refresh-rag: full delete and rebuild of the
// vector collection.
func (h *Handlers) RefreshRAG(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingestor.Refresh(r.Context())
	if err != nil {
		h.logger.Error("refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{
		Message:       "News vector DB refreshed successfully.",
		ArticlesCount: result.ArticlesCount,
		PointsCount:   result.PointsCount,
		Duration:      result.Duration.Round(time.Millisecond).String(),
	})
}

// History handles GET /session/{id}/history.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	history, err := h.sessions.GetHistory(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to read history", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: sessionID, History: history})
}

// ClearSession handles DELETE /session/{id}.
func (h *Handlers) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	if err := h.sessions.ClearSession(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to clear session", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Session cleared successfully"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
