package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/printshop-os/opsboard/internal/cms"
	"github.com/printshop-os/opsboard/internal/config"
	"github.com/printshop-os/opsboard/internal/events"
	"github.com/printshop-os/opsboard/internal/outbox"
	"github.com/printshop-os/opsboard/internal/worker"
	"github.com/printshop-os/opsboard/shared/logger"
	"github.com/printshop-os/opsboard/shared/rabbitmq"
	"github.com/printshop-os/opsboard/shared/sqlitedb"
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

	// Open the outbox database shared with the api-service
	dbClient, outboxStore, err := initOutbox(&cfg.Outbox, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize outbox: %w", err)
	}

	appLogger.Info("Outbox database ready")

	// Initialize CMS client to replay mutations through
	cmsClient := initCMS(&cfg.CMS, appLogger.Logger)

	// Initialize event publisher
	publisher, err := initPublisher(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		WorkerID:       cfg.Worker.WorkerID,
		Concurrency:    cfg.Worker.Concurrency,
		PollInterval:   cfg.Worker.PollInterval,
		SyncTimeout:    cfg.Worker.SyncTimeout,
		StaleClaimAge:  cfg.Worker.StaleClaimAge,
		HealthMaxWait:  cfg.Worker.HealthMaxWait,
		HealthInterval: cfg.Worker.HealthInterval,
	}, outboxStore, cmsClient, publisher, appLogger.Logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Run(ctx); err != nil {
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
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
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

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if publisher != nil {
			publisher.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return nil
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

// initCMS initializes the CMS API client
func initCMS(cfg *config.CMSConfig, logger *slog.Logger) *cms.Client {
	return cms.NewClient(&cms.Config{
		BaseURL:        cfg.BaseURL,
		Token:          cfg.Token,
		Timeout:        cfg.Timeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
		PageSize:       cfg.PageSize,
		RequestGap:     cfg.RequestGap,
	}, logger)
}

// initOutbox opens the embedded outbox database and its store
func initOutbox(cfg *config.OutboxConfig, logger *slog.Logger) (*sqlitedb.Client, *outbox.Store, error) {
	dbClient, err := sqlitedb.NewClient(&sqlitedb.Config{
		Path:            cfg.Path,
		BusyTimeout:     cfg.BusyTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := outbox.NewStore(dbClient.GetDB(), &outbox.Config{
		MaxAttempts:    cfg.MaxAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
	}, logger)
	if err != nil {
		dbClient.Close()
		return nil, nil, err
	}

	return dbClient, store, nil
}

// initPublisher initializes the event publisher. When RabbitMQ is disabled the
// worker still drains; sync events are simply dropped.
func initPublisher(cfg *config.RabbitMQConfig, logger *slog.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		logger.Info("Event publishing disabled, using nop publisher")
		return events.NopPublisher{}, nil
	}

	rabbitClient, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
	if err != nil {
		return nil, err
	}

	return events.NewAMQPPublisher(rabbitClient, logger), nil
}
