package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
)

const maxConcurrency = 16

// redisClient implements Client using Redis
type redisClient struct {
	client    *redis.Client
	queueName string
	retrySet  string
	logger    *slog.Logger
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL       string
	QueueName string
	RetrySet  string
}

// NewRedis parses a Redis URL and verifies the connection
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisClient wraps an established Redis connection as a job queue
func NewRedisClient(client *redis.Client, cfg RedisConfig, logger *slog.Logger) Client {
	if cfg.RetrySet == "" {
		cfg.RetrySet = cfg.QueueName + ":retry"
	}

	logger.Info("using Redis queue",
		slog.String("queue", cfg.QueueName),
		slog.String("retry_set", cfg.RetrySet),
	)

	return &redisClient{
		client:    client,
		queueName: cfg.QueueName,
		retrySet:  cfg.RetrySet,
		logger:    logger,
	}
}

// Publish sends a message job to the queue
func (c *redisClient) Publish(ctx context.Context, job *models.MessageJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	// LPUSH + BRPOP gives FIFO order
	if err := c.client.LPush(ctx, c.queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to push job to queue: %w", err)
	}

	c.logger.Debug("job published to queue",
		slog.Int64("message_id", job.OutboundMessageID),
		slog.Int("attempt", job.Attempt),
	)

	return nil
}

// PublishAt adds the job to the retry sorted set scored by its due time
func (c *redisClient) PublishAt(ctx context.Context, job *models.MessageJob, at time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = c.client.ZAdd(ctx, c.retrySet, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	c.logger.Debug("job scheduled for retry",
		slog.Int64("message_id", job.OutboundMessageID),
		slog.Time("due_at", at),
	)

	return nil
}

// PromoteDue moves due jobs from the retry set onto the queue. A job is only
// pushed by the caller whose ZREM removed it, so concurrent promoters never
// duplicate work.
func (c *redisClient) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := c.client.ZRangeByScore(ctx, c.retrySet, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: 100,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read retry set: %w", err)
	}

	promoted := 0
	for _, member := range due {
		removed, err := c.client.ZRem(ctx, c.retrySet, member).Result()
		if err != nil {
			return promoted, fmt.Errorf("failed to claim retry job: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := c.client.LPush(ctx, c.queueName, member).Err(); err != nil {
			return promoted, fmt.Errorf("failed to push retry job: %w", err)
		}
		promoted++
	}

	if promoted > 0 {
		c.logger.Info("promoted retry jobs", slog.Int("count", promoted))
	}

	return promoted, nil
}

// Consume receives messages from the queue and processes them with the handler.
// It returns after ctx is cancelled and every in-flight job has finished.
func (c *redisClient) Consume(ctx context.Context, handler MessageHandler, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}

	c.logger.Info("starting queue consumer",
		slog.String("queue", c.queueName),
		slog.Int("concurrency", concurrency),
	)

	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	defer func() {
		c.logger.Info("consumer stopping, waiting for in-flight jobs")
		wg.Wait()
		c.logger.Info("all in-flight jobs completed")
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Blocks for up to 1 second when the queue is empty
		result, err := c.client.BRPop(ctx, 1*time.Second, c.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.logger.Error("failed to pop from queue", slog.String("error", err.Error()))
			select {
			case <-time.After(1 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		// BRPOP returns [queueName, value]
		if len(result) < 2 {
			c.logger.Error("unexpected BRPOP result format")
			continue
		}

		var job models.MessageJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			c.logger.Error("failed to unmarshal job",
				slog.String("error", err.Error()),
				slog.String("data", result[1]),
			)
			continue
		}

		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			c.pushBack(ctx, result[1], job.OutboundMessageID)
			return ctx.Err()
		}
		wg.Add(1)

		go func(job models.MessageJob) {
			defer wg.Done()
			defer func() { <-semaphore }()

			// The job is already popped; retries are the handler's business
			if err := handler(ctx, &job); err != nil {
				c.logger.Error("handler failed to process job",
					slog.Int64("message_id", job.OutboundMessageID),
					slog.String("error", err.Error()),
				)
			}
		}(job)
	}
}

// pushBack returns a popped job to the consuming end of the queue so it is
// the next one taken after a restart
func (c *redisClient) pushBack(ctx context.Context, payload string, messageID int64) {
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := c.client.RPush(pushCtx, c.queueName, payload).Err(); err != nil {
		c.logger.Error("failed to push back unstarted job",
			slog.Int64("message_id", messageID),
			slog.String("error", err.Error()),
		)
		return
	}
	c.logger.Info("unstarted job pushed back", slog.Int64("message_id", messageID))
}

// Close closes the Redis connection
func (c *redisClient) Close() error {
	c.logger.Info("closing Redis connection")
	return c.client.Close()
}

// Health checks if Redis is healthy
func (c *redisClient) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
