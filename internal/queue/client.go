package queue

import (
	"context"
	"time"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
)

// Client defines the interface for queue operations
type Client interface {
	// Publish sends a message job to the queue
	Publish(ctx context.Context, job *models.MessageJob) error

	// PublishAt parks a job until at, after which the promoter moves it to the queue
	PublishAt(ctx context.Context, job *models.MessageJob, at time.Time) error

	// PromoteDue moves every parked job due at or before now onto the queue
	PromoteDue(ctx context.Context, now time.Time) (int, error)

	// Consume receives messages from the queue and processes them with the handler
	// concurrency controls how many messages can be processed simultaneously
	Consume(ctx context.Context, handler MessageHandler, concurrency int) error

	// Close closes the queue connection
	Close() error

	// Health checks if the queue is healthy
	Health(ctx context.Context) error
}

// MessageHandler is a function that processes a message job
type MessageHandler func(ctx context.Context, job *models.MessageJob) error

// RunPromoter calls PromoteDue every interval until ctx is cancelled.
// The caller owns the lifetime through ctx.
func RunPromoter(ctx context.Context, c Client, interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := c.PromoteDue(ctx, now); err != nil && ctx.Err() == nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
