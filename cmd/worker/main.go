package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Raymond9734/bulk-sms-sender/internal/config"
	"github.com/Raymond9734/bulk-sms-sender/internal/db"
	"github.com/Raymond9734/bulk-sms-sender/internal/logging"
	"github.com/Raymond9734/bulk-sms-sender/internal/queue"
	"github.com/Raymond9734/bulk-sms-sender/internal/repository"
	"github.com/Raymond9734/bulk-sms-sender/internal/worker"
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
	logger.Info("starting bulk SMS worker")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	database, err := db.New(ctx, db.Config{DSN: cfg.Database.DSN()})
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	logger.Info("connected to database")

	// Connect to Redis queue
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

	// Initialize repositories
	messageRepo := repository.NewOutboundMessageRepository(database.DB)
	batchRepo := repository.NewBatchRepository(database.DB)

	// Simulated carriers, one per configured provider
	router := worker.NewMockRouter(cfg.Providers, cfg.Worker.SuccessRate)

	// Initialize message processor
	processor := worker.NewMessageProcessor(
		messageRepo,
		batchRepo,
		router,
		queueClient,
		cfg.Worker.MaxRetryCount,
		worker.Backoff{Base: cfg.Worker.BackoffBase, Max: cfg.Worker.BackoffMax},
		logger,
	)

	// Move due retries back onto the queue
	go queue.RunPromoter(ctx, queueClient, cfg.Worker.PollInterval, func(err error) {
		logger.Error("failed to promote due retries", slog.String("error", err.Error()))
	})

	// Start consuming messages
	consumerErrors := make(chan error, 1)
	go func() {
		logger.Info("starting message consumer",
			slog.Int("concurrency", cfg.Worker.Concurrency),
			slog.Int("max_attempts", cfg.Worker.MaxRetryCount),
			slog.Any("providers", cfg.Providers),
		)

		consumerErrors <- queueClient.Consume(ctx, processor.Process, cfg.Worker.Concurrency)
	}()

	// Wait for interrupt signal or consumer error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-consumerErrors:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("consumer error", slog.String("error", err.Error()))
			os.Exit(1)
		}

	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))

		// Cancel context to stop consumer
		cancel()

		// Consume waits for in-flight jobs before returning
		select {
		case <-consumerErrors:
		case <-time.After(30 * time.Second):
			logger.Warn("timed out waiting for in-flight jobs")
		}

		logger.Info("worker stopped gracefully")
	}
}
