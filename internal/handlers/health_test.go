package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/estatetools/opsdash/internal/sheets"
)

func TestHealthChecker_BasicMode(t *testing.T) {
	t.Parallel()

	checker := NewHealthChecker(fixtureSource())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	checker.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if resp.Checks != nil {
		t.Error("basic mode should carry no checks")
	}
}

func TestHealthChecker_ExtendedMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		source     *sheets.StaticSource
		wantCode   int
		wantStatus string
	}{
		{
			name:       "sheet reachable",
			source:     fixtureSource(),
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "sheet missing",
			source:     sheets.NewStaticSource(),
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := NewHealthChecker(tt.source)
			req := httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil)
			rec := httptest.NewRecorder()
			checker.HealthCheck(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Checks == nil {
				t.Error("extended mode should carry checks")
			}
		})
	}
}
