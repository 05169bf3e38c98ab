package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	FrontendURL     string
	EnableHSTS      bool
	ServerDebugMode bool

	// Google data source
	SpreadsheetName string
	CredentialsFile string
	TokenFile       string

	// Task document persistence
	TaskFileName   string
	LocalCacheFile string

	// Local files
	SettingsFile   string
	ColumnMapFile  string

	// Exchange-rate sync
	RateSyncEnabled         bool
	RateSourceURL           string
	RateSyncIntervalMinutes int

	RateLimit string

	OTELEnabled  bool
	OTELEndpoint string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		FrontendURL:             getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:              getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode:         getEnvBool("SERVER_DEBUG_MODE", false),
		SpreadsheetName:         getEnv("SPREADSHEET_NAME", ""),
		CredentialsFile:         getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:               getEnv("GOOGLE_TOKEN_FILE", "token.json"),
		TaskFileName:            getEnv("TASK_FILE_NAME", "todo_list.json"),
		LocalCacheFile:          getEnv("LOCAL_CACHE_FILE", "todo_list_cache.json"),
		SettingsFile:            getEnv("SETTINGS_FILE", "opsdash_settings.json"),
		ColumnMapFile:           getEnv("COLUMN_MAP_FILE", ""),
		RateSyncEnabled:         getEnvBool("RATE_SYNC_ENABLED", false),
		RateSourceURL:           getEnv("RATE_SOURCE_URL", ""),
		RateSyncIntervalMinutes: getEnvInt("RATE_SYNC_INTERVAL_MINUTES", 60),
		RateLimit:               getEnv("RATE_LIMIT", "10-S"),
		OTELEnabled:             getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:            getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.SpreadsheetName == "" {
		return nil, fmt.Errorf("SPREADSHEET_NAME is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
