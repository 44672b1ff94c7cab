package utils

import (
	"encoding/json"
	"net/http"

	"github.com/brizzai/searchkit/internal/logger"
	"go.uber.org/zap"
)

// WriteJSON writes data as a JSON response.
func WriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteError writes a JSON error body with the given status.
func WriteError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	}); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
	}
}
