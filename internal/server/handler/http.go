// Package handler provides HTTP request handling for the MCP server.
package handler

import (
	"net/http"
	"time"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/brizzai/searchkit/internal/logger"
	"github.com/brizzai/searchkit/internal/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler manages HTTP routing and middleware for the SSE and HTTP modes.
type Handler struct {
	metrics http.Handler
}

// NewHandler creates a new HTTP handler.
func NewHandler() *Handler {
	return &Handler{
		metrics: promhttp.Handler(),
	}
}

// CreateHTTPHandler mounts the MCP transport at the root next to the health
// and metrics endpoints, all behind request logging.
func (h *Handler) CreateHTTPHandler(mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.metrics)
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/", mcpHandler)
	return LoggingMiddleware(mux)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		utils.WriteError(w, "method_not_allowed", "only GET is supported", http.StatusMethodNotAllowed)
		return
	}
	utils.WriteJSON(w, map[string]string{
		"status":  "ok",
		"version": config.Version(),
	})
}

// LoggingMiddleware logs information about each incoming request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		logger.Debug("HTTP Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
