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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/printshop-os/opsboard/internal/api/handler"
	"github.com/printshop-os/opsboard/internal/api/router"
	"github.com/printshop-os/opsboard/internal/cms"
	"github.com/printshop-os/opsboard/internal/config"
	"github.com/printshop-os/opsboard/internal/events"
	"github.com/printshop-os/opsboard/internal/outbox"
	"github.com/printshop-os/opsboard/internal/snapshot"
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
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize CMS client
	cmsClient := initCMS(&cfg.CMS, appLogger.Logger)

	// Initialize the outbox database
	dbClient, outboxStore, err := initOutbox(&cfg.Outbox, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize outbox: %w", err)
	}

	appLogger.Info("Outbox database ready")

	// Initialize event publisher
	publisher, err := initPublisher(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	// Resolve the shop timezone for the schedule views
	location, err := cfg.Schedule.Location()
	if err != nil {
		dbClient.Close()
		publisher.Close()
		return fmt.Errorf("failed to resolve schedule timezone: %w", err)
	}

	// Start the snapshot poller; reads are served from its store
	snapStore := snapshot.NewStore()
	poller := snapshot.NewPoller(&snapshot.PollerConfig{
		Interval:       cfg.Poller.Interval,
		FetchTimeout:   cfg.Poller.FetchTimeout,
		DemoMode:       cfg.Poller.DemoMode,
		DailyCapacity:  cfg.Schedule.DailyCapacity,
		Location:       location,
		OverbookedDays: cfg.Poller.OverbookedDays,
	}, cmsClient, snapStore, publisher, appLogger.Logger)

	pollerCtx, stopPoller := context.WithCancel(context.Background())
	go poller.Run(pollerCtx)

	appLogger.Info("Snapshot poller started",
		slog.Duration("interval", cfg.Poller.Interval),
		slog.Bool("demo_mode", cfg.Poller.DemoMode),
	)

	// Initialize router
	r := initRouter(cfg, appLogger.Logger, snapStore, cmsClient, outboxStore, publisher, location)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	// Cleanup function to close all resources
	cleanup := func() {
		cancel()
		stopPoller()
		if dbClient != nil {
			dbClient.Close()
		}
		if publisher != nil {
			publisher.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
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
// services still run; events are simply dropped.
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

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, snapStore *snapshot.Store, cmsClient *cms.Client, outboxStore *outbox.Store, publisher events.Publisher, location *time.Location) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize handler dependencies
	handlerDeps := &handler.Dependencies{
		Logger:        logger,
		Snapshot:      snapStore,
		CMS:           cmsClient,
		Outbox:        outboxStore,
		Publisher:     publisher,
		Location:      location,
		DailyCapacity: cfg.Schedule.DailyCapacity,
	}

	// Setup router
	return router.SetupRouter(handlerDeps)
}
