package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/queue"
	"github.com/Raymond9734/bulk-sms-sender/internal/repository"
)

// ErrRetryScheduled is returned when a send failed and another attempt was queued
var ErrRetryScheduled = errors.New("send failed, retry scheduled")

// MessageProcessor processes message jobs from the queue
type MessageProcessor struct {
	messageRepo repository.OutboundMessageRepository
	batchRepo   repository.BatchRepository
	router      Router
	queueClient queue.Client
	maxAttempts int
	backoff     Backoff
	logger      *slog.Logger
	now         func() time.Time
}

// NewMessageProcessor creates a new message processor.
// maxAttempts bounds delivery attempts per message, the first one included.
func NewMessageProcessor(
	messageRepo repository.OutboundMessageRepository,
	batchRepo repository.BatchRepository,
	router Router,
	queueClient queue.Client,
	maxAttempts int,
	backoff Backoff,
	logger *slog.Logger,
) *MessageProcessor {
	return &MessageProcessor{
		messageRepo: messageRepo,
		batchRepo:   batchRepo,
		router:      router,
		queueClient: queueClient,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
		now:         time.Now,
	}
}

// Process handles a single message job
func (p *MessageProcessor) Process(ctx context.Context, job *models.MessageJob) error {
	// Popped but handed over after shutdown began
	if ctx.Err() != nil {
		return p.requeueInterrupted(ctx, job)
	}

	message, err := p.messageRepo.GetByID(ctx, job.OutboundMessageID)
	if err != nil {
		p.logger.Error("failed to fetch message",
			slog.Int64("message_id", job.OutboundMessageID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to fetch message: %w", err)
	}

	// Duplicate delivery of an already settled job
	if message.Status != models.MessageStatusPending {
		p.logger.Debug("skipping settled message",
			slog.Int64("message_id", message.ID),
			slog.String("status", message.Status),
		)
		return nil
	}

	sender, err := p.router.Sender(message.Provider)
	if err != nil {
		return p.markFailed(ctx, message, err.Error())
	}

	p.logger.Info("processing message",
		slog.Int64("message_id", message.ID),
		slog.String("batch_id", message.BatchID),
		slog.String("provider", message.Provider),
		slog.Int("attempt", message.RetryCount+1),
	)

	err = sender.Send(ctx, message.Phone, message.RenderedContent)
	if err != nil {
		if ctx.Err() != nil {
			return p.requeueInterrupted(ctx, job)
		}

		p.logger.Warn("message send failed",
			slog.Int64("message_id", message.ID),
			slog.Int("retry_count", message.RetryCount),
			slog.String("error", err.Error()),
		)
		return p.handleFailure(ctx, message, err)
	}

	p.logger.Info("message sent successfully",
		slog.Int64("message_id", message.ID),
		slog.String("batch_id", message.BatchID),
	)

	return p.handleSuccess(ctx, message)
}

// handleSuccess updates message status to sent
func (p *MessageProcessor) handleSuccess(ctx context.Context, message *models.OutboundMessage) error {
	if err := p.messageRepo.UpdateStatus(ctx, message.ID, models.MessageStatusSent, nil); err != nil {
		p.logger.Error("failed to update message status to sent",
			slog.Int64("message_id", message.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update message status: %w", err)
	}

	p.settleBatch(ctx, message.BatchID)
	return nil
}

// handleFailure records the failure and either schedules a retry with
// exponential backoff or marks the message permanently failed
func (p *MessageProcessor) handleFailure(ctx context.Context, message *models.OutboundMessage, sendErr error) error {
	failures, err := p.messageRepo.RecordFailure(ctx, message.ID, sendErr.Error())
	if err != nil {
		p.logger.Error("failed to record send failure",
			slog.Int64("message_id", message.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	if !models.CanRetry(failures, p.maxAttempts) {
		p.logger.Error("message permanently failed after max attempts",
			slog.Int64("message_id", message.ID),
			slog.Int("attempts", failures),
			slog.Int("max_attempts", p.maxAttempts),
		)
		return p.markFailed(ctx, message, fmt.Sprintf("max attempts exceeded: %s", sendErr.Error()))
	}

	delay := p.backoff.Delay(failures)
	job := &models.MessageJob{OutboundMessageID: message.ID, Attempt: failures}
	if err := p.queueClient.PublishAt(ctx, job, p.now().Add(delay)); err != nil {
		p.logger.Error("failed to schedule retry",
			slog.Int64("message_id", message.ID),
			slog.String("error", err.Error()),
		)
		return p.markFailed(ctx, message, fmt.Sprintf("retry scheduling failed: %s", sendErr.Error()))
	}

	p.logger.Info("message will be retried",
		slog.Int64("message_id", message.ID),
		slog.Int("attempt", failures+1),
		slog.Int("max_attempts", p.maxAttempts),
		slog.Duration("delay", delay),
	)

	return fmt.Errorf("%w: attempt %d/%d: %v", ErrRetryScheduled, failures, p.maxAttempts, sendErr)
}

// markFailed settles a message as failed and re-evaluates its batch
func (p *MessageProcessor) markFailed(ctx context.Context, message *models.OutboundMessage, reason string) error {
	if err := p.messageRepo.UpdateStatus(ctx, message.ID, models.MessageStatusFailed, &reason); err != nil {
		p.logger.Error("failed to update message status to failed",
			slog.Int64("message_id", message.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	p.settleBatch(ctx, message.BatchID)
	return nil
}

// requeueInterrupted puts back a job whose send was cut short by shutdown.
// The attempt is not counted as a failure.
func (p *MessageProcessor) requeueInterrupted(ctx context.Context, job *models.MessageJob) error {
	requeueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.queueClient.Publish(requeueCtx, job); err != nil {
		p.logger.Error("failed to requeue interrupted job",
			slog.Int64("message_id", job.OutboundMessageID),
			slog.String("error", err.Error()),
		)
		return err
	}

	p.logger.Info("interrupted job requeued", slog.Int64("message_id", job.OutboundMessageID))
	return ctx.Err()
}

// settleBatch moves the batch to its final status once nothing is pending
func (p *MessageProcessor) settleBatch(ctx context.Context, batchID string) {
	batch, err := p.batchRepo.GetWithStats(ctx, batchID)
	if err != nil {
		p.logger.Error("failed to get batch stats",
			slog.String("batch_id", batchID),
			slog.String("error", err.Error()),
		)
		return
	}

	newStatus := batch.Stats.FinalStatus()
	if newStatus == "" || batch.Status == newStatus {
		return
	}

	if err := p.batchRepo.UpdateStatus(ctx, batchID, newStatus); err != nil {
		p.logger.Error("failed to update batch status",
			slog.String("batch_id", batchID),
			slog.String("new_status", newStatus),
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.Info("batch status updated",
		slog.String("batch_id", batchID),
		slog.String("status", newStatus),
		slog.Int64("total", batch.Stats.Total),
		slog.Int64("sent", batch.Stats.Sent),
		slog.Int64("failed", batch.Stats.Failed),
	)
}
