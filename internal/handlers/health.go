package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/estatetools/opsdash/internal/sheets"
)

// HealthChecker handles health check requests
type HealthChecker struct {
	source sheets.Source
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(source sheets.Source) *HealthChecker {
	return &HealthChecker{source: source}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if mode == "extended" {
		checks := make(map[string]string)

		if _, err := h.source.Table(r.Context(), sheets.TableApartments); err != nil {
			response.Status = "unhealthy"
			checks["sheet"] = "unhealthy: " + err.Error()
		} else {
			checks["sheet"] = "healthy"
		}

		response.Checks = checks
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
