package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/shared/utils"
	v1 "github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1"
	v1handlers "github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/handlers"
	v1middleware "github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/middleware"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/services"
)

func main() {
	// Load .env file if it exists (optional - fails silently if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	slog.SetDefault(logger)

	slog.Info("Starting work-order core initialization")

	dbConfig := v1.NewDatabaseConfig()
	gormDB, err := v1.ConnectGormDB(dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	jwtConfig := v1middleware.NewJWTAuthConfigFromEnv()
	jwtAuth, err := v1middleware.NewJWTAuthMiddleware(jwtConfig)
	if err != nil {
		slog.Error("Invalid JWT configuration", "error", err)
		os.Exit(1)
	}

	v1Handler := v1handlers.NewV1Handler(gormDB)

	router := chi.NewRouter()
	router.Use(v1middleware.CORSMiddleware())
	router.Use(v1middleware.MetricsMiddleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		type HealthStatus struct {
			Status   string `json:"status"`
			Service  string `json:"service"`
			Database string `json:"database"`
		}

		status := HealthStatus{Status: "healthy", Service: "workorder-core", Database: dbConfig.Database}
		statusCode := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		sqlDB, err := gormDB.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			status.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}

		utils.RespondWithJSON(w, statusCode, status)
	})
	router.Handle("/metrics", v1middleware.MetricsHandler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtAuth.Authenticate)
		v1Handler.SetupV1Routes(r)
	})

	// The outbox worker drains pending notifications out-of-band
	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := services.NewNotificationWorker(gormDB, services.LogSender{})
	go worker.Start(workerCtx)

	port := utils.GetEnvOrDefault("PORT", "3000")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Work-order core starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down work-order core...")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}

	slog.Info("Work-order core exited")
}
