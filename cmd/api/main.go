package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Raymond9734/bulk-sms-sender/internal/config"
	"github.com/Raymond9734/bulk-sms-sender/internal/db"
	"github.com/Raymond9734/bulk-sms-sender/internal/handler"
	"github.com/Raymond9734/bulk-sms-sender/internal/logging"
	"github.com/Raymond9734/bulk-sms-sender/internal/queue"
	"github.com/Raymond9734/bulk-sms-sender/internal/repository"
	"github.com/Raymond9734/bulk-sms-sender/internal/service"
	"github.com/Raymond9734/bulk-sms-sender/internal/session"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting bulk SMS API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	database, err := db.New(ctx, db.Config{DSN: cfg.Database.DSN()})
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("connected to database")

	// Connect to Redis
	redisConn, err := queue.NewRedis(ctx, cfg.Queue.RedisURL)
	if err != nil {
		logger.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}

	queueClient := queue.NewRedisClient(redisConn, queue.RedisConfig{
		URL:       cfg.Queue.RedisURL,
		QueueName: cfg.Queue.QueueName,
		RetrySet:  cfg.Queue.RetrySet,
	}, logger)
	defer queueClient.Close()

	logger.Info("connected to Redis queue")

	// List session storage
	var store session.Store
	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		memStore := session.NewMemoryStore(cfg.Session.TTL, logger)
		go memStore.RunSweeper(ctx, time.Minute)
		store = memStore
	default:
		store = session.NewRedisStore(redisConn, cfg.Session.Prefix, cfg.Session.TTL)
	}

	logger.Info("list session store ready",
		slog.String("store", cfg.Session.Store),
		slog.Duration("ttl", cfg.Session.TTL),
	)

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(database.DB)
	batchRepo := repository.NewBatchRepository(database.DB)
	messageRepo := repository.NewOutboundMessageRepository(database.DB)

	// Initialize services
	templateSvc := service.NewTemplateService()
	customerSvc := service.NewCustomerService(customerRepo, logger)
	listSvc := service.NewListService(store, customerRepo, logger)
	dispatchSvc := service.NewDispatchService(
		store,
		batchRepo,
		messageRepo,
		templateSvc,
		queueClient,
		cfg.Providers,
		logger,
	)

	// Initialize handlers and router
	r := handler.NewRouter(handler.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthChecker{
			"database": database,
			"queue":    queueClient,
		}, logger),
		Customer: handler.NewCustomerHandler(customerSvc, cfg.API.MaxImportSize, logger),
		Session:  handler.NewSessionHandler(listSvc, dispatchSvc, logger),
		Batch:    handler.NewBatchHandler(dispatchSvc, logger),
	}, logger)

	// Create server
	addr := fmt.Sprintf(":%d", cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", slog.String("addr", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}

	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.String("error", err.Error()))
			os.Exit(1)
		}

		cancel()
		logger.Info("server stopped gracefully")
	}
}
