package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/estatetools/opsdash/internal/config"
	"github.com/estatetools/opsdash/internal/handlers"
	"github.com/estatetools/opsdash/internal/logger"
	"github.com/estatetools/opsdash/internal/middleware"
	"github.com/estatetools/opsdash/internal/settings"
	"github.com/estatetools/opsdash/internal/sheets"
	"github.com/estatetools/opsdash/internal/storage"
	"github.com/estatetools/opsdash/internal/telemetry"
	"github.com/estatetools/opsdash/internal/todo"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("spreadsheet_name", cfg.SpreadsheetName),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "opsdash", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	ctx := context.Background()

	// Google credentials cover both the spreadsheet and the Drive document
	httpClient, err := sheets.NewHTTPClient(ctx, cfg.CredentialsFile, cfg.TokenFile)
	if err != nil {
		zapLogger.Fatal("failed_to_build_google_client", zap.Error(err))
	}

	mapping, err := sheets.LoadMapping(cfg.ColumnMapFile)
	if err != nil {
		zapLogger.Fatal("failed_to_load_column_mapping", zap.Error(err))
	}

	source, err := sheets.NewGoogleSource(ctx, httpClient, cfg.SpreadsheetName, mapping, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_open_spreadsheet", zap.Error(err))
	}
	zapLogger.Info("connected_to_spreadsheet")

	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		zapLogger.Fatal("failed_to_build_drive_service", zap.Error(err))
	}
	persist := storage.NewDriveStore(driveSvc, cfg.TaskFileName, cfg.LocalCacheFile, zapLogger)

	// Task store: load the persisted document, starting empty when none exists
	taskStore := todo.NewStore(source, mapping, persist, zapLogger)
	if err := taskStore.Load(ctx); err != nil {
		zapLogger.Warn("failed_to_load_task_document_starting_empty", zap.Error(err))
	}
	zapLogger.Info("task_store_ready", zap.Int("tasks", len(taskStore.Tasks())))

	// Billing settings and the optional exchange-rate refresher
	settingsStore := settings.NewStore(cfg.SettingsFile, zapLogger)
	var refresher *settings.RateRefresher
	refreshCtx, refreshCancel := context.WithCancel(context.Background())
	defer refreshCancel()
	if cfg.RateSyncEnabled {
		rateSource := settings.NewHTTPRateSource(cfg.RateSourceURL, nil)
		refresher = settings.NewRateRefresher(settingsStore, rateSource, zapLogger)
		interval := time.Duration(cfg.RateSyncIntervalMinutes) * time.Minute
		go refresher.Run(refreshCtx, interval)
		zapLogger.Info("rate_refresher_started", zap.Duration("interval", interval))
	}

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(taskStore)
	settingsHandler := handlers.NewSettingsHandler(settingsStore, refresher)
	healthChecker := handlers.NewHealthChecker(source)

	// Setup router
	r := mux.NewRouter()

	// Note: in gorilla/mux, middleware executes in registration order,
	// so the outermost concerns are registered first.
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware("opsdash"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORSFromFrontendURL(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(rateLimitMW)
	apiRouter.HandleFunc("/reload", taskHandler.Reload).Methods("POST")
	taskHandler.RegisterRoutes(apiRouter.PathPrefix("/todos").Subrouter())
	settingsHandler.RegisterRoutes(apiRouter.PathPrefix("/settings").Subrouter())

	// Catch-all OPTIONS handler for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	refreshCancel()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	// Unsaved edits would otherwise be lost with the process
	if taskStore.Dirty() {
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer saveCancel()
		if err := taskStore.Save(saveCtx); err != nil {
			zapLogger.Error("failed_to_save_task_document_on_shutdown", zap.Error(err))
		} else {
			zapLogger.Info("task_document_saved_on_shutdown")
		}
	}

	zapLogger.Info("server_exited")
}
