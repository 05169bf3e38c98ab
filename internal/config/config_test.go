package config

import (
	"testing"
)

func TestLoad_RequiresSpreadsheetName(t *testing.T) {
	t.Setenv("SPREADSHEET_NAME", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when SPREADSHEET_NAME is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SPREADSHEET_NAME", "APARTMENTS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.TaskFileName != "todo_list.json" {
		t.Errorf("TaskFileName = %q, want todo_list.json", cfg.TaskFileName)
	}
	if cfg.RateLimit != "10-S" {
		t.Errorf("RateLimit = %q, want 10-S", cfg.RateLimit)
	}
	if cfg.RateSyncEnabled {
		t.Error("RateSyncEnabled should default to false")
	}
	if cfg.RateSyncIntervalMinutes != 60 {
		t.Errorf("RateSyncIntervalMinutes = %d, want 60", cfg.RateSyncIntervalMinutes)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SPREADSHEET_NAME", "APARTMENTS")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_DEBUG_MODE", "true")
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("RATE_SYNC_INTERVAL_MINUTES", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if !cfg.ServerDebugMode {
		t.Error("SERVER_DEBUG_MODE=true not honored")
	}
	if !cfg.OTELEnabled {
		t.Error("OTEL_ENABLED=1 not honored")
	}
	if cfg.RateSyncIntervalMinutes != 15 {
		t.Errorf("RateSyncIntervalMinutes = %d, want 15", cfg.RateSyncIntervalMinutes)
	}
}
