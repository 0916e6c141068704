package api

import (
	"log/slog"
	"net/http"
)

// NewRouter assembles the HTTP surface: chat and session routes, the
// refresh trigger, health, and a landing page. Unmatched routes get a JSON
// 404 with the requested path.
func NewRouter(handlers *Handlers, health http.HandlerFunc, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /session/create", handlers.CreateSession)
	mux.HandleFunc("POST /chat", handlers.Chat)
	mux.HandleFunc("POST /refresh-rag", handlers.RefreshRAG)
	mux.HandleFunc("GET /session/{id}/history", handlers.History)
	mux.HandleFunc("DELETE /session/{id}", handlers.ClearSession)
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /{$}", landingHandler)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "Route not found",
			Path:  r.URL.Path,
		})
	})

	return requestLogger(mux, logger)
}

// requestLogger logs every request with method and path.
func requestLogger(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// landingHandler describes the service and its endpoints.
func landingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "News RAG Chatbot API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":        "/health",
			"chat":          "/chat",
			"createSession": "/session/create",
			"getHistory":    "/session/{id}/history",
			"clearSession":  "/session/{id}",
			"refreshRAG":    "/refresh-rag",
		},
	})
}
