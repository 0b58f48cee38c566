package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vipplay/content-dispatcher/internal/config"
	"github.com/vipplay/content-dispatcher/internal/generation"
	"github.com/vipplay/content-dispatcher/internal/metrics"
	"github.com/vipplay/content-dispatcher/internal/worker"
	"github.com/vipplay/content-dispatcher/internal/worker/storage"
	"github.com/vipplay/content-dispatcher/shared/logger"
	"github.com/vipplay/content-dispatcher/shared/postgresql"
	"github.com/vipplay/content-dispatcher/shared/sqs"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize SQS client
	queueClient, err := initQueue(&cfg.Queue, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	appLogger.Info("Queue client initialized",
		slog.String("queue_url", queueClient.QueueURL()),
	)

	// Initialize generation pipeline client
	pipeline := generation.NewClient(cfg.Generation.BaseURL, cfg.Generation.Timeout, appLogger.Logger)

	workerMetrics := metrics.New()

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:              appLogger.Logger,
		Queue:               queueClient,
		Store:               storage.NewStorage(dbClient.GetDB(), appLogger.Logger),
		Pipeline:            pipeline,
		Metrics:             workerMetrics,
		Concurrency:         cfg.Worker.Concurrency,
		BatchSize:           cfg.Worker.BatchSize,
		WaitTime:            cfg.Queue.WaitTime,
		JobTimeout:          cfg.Worker.JobTimeout,
		VisibilityTimeout:   cfg.Queue.VisibilityTimeout,
		VisibilityHeartbeat: cfg.Worker.VisibilityHeartbeat,
		MaxReceiveCount:     cfg.Queue.MaxReceiveCount,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Serve health and metrics endpoints
	metricsSrv := startMetricsServer(cfg.Worker.MetricsPort, workerMetrics, appLogger.Logger)

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop worker
	cancel()

	// Give worker time to shutdown gracefully
	shutdownTimeout := cfg.Worker.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop worker
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("Metrics server shutdown failed",
				slog.Any("error", err),
			)
		}
	}

	if dbClient != nil {
		dbClient.Close()
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// startMetricsServer exposes /health and /metrics. A zero port disables
// the server.
func startMetricsServer(port int, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	if port <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"content-dispatcher-worker"}`))
	})
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting metrics server",
			slog.String("address", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed",
				slog.Any("error", err),
			)
		}
	}()

	return srv
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initQueue initializes the SQS queue client
func initQueue(cfg *config.QueueConfig, logger *slog.Logger) (*sqs.Client, error) {
	queueConfig := &sqs.Config{
		Region:             cfg.Region,
		QueueURL:           cfg.URL,
		DeadLetterQueueURL: cfg.DeadLetterURL,
		Endpoint:           cfg.Endpoint,
		AccessKeyID:        cfg.AccessKeyID,
		SecretAccessKey:    cfg.SecretAccessKey,
		VisibilityTimeout:  cfg.VisibilityTimeout,
	}

	return sqs.NewClient(context.Background(), queueConfig, logger)
}
