package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Raymond9734/bulk-sms-sender/internal/logging"
	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/queue"
	"github.com/Raymond9734/bulk-sms-sender/internal/repository"
	"github.com/Raymond9734/bulk-sms-sender/internal/session"
)

// DispatchService handles the bulk send action and batch tracking
type DispatchService interface {
	SendSelected(ctx context.Context, sessionID string, req *SendSelectedRequest) (*SendSelectedResult, error)
	GetBatch(ctx context.Context, id string) (*models.BatchWithStats, error)
	ListMessages(ctx context.Context, filter models.OutboundMessageFilter) (*MessageListResult, error)
	Providers() []string
}

type dispatchService struct {
	store       session.Store
	batchRepo   repository.BatchRepository
	messageRepo repository.OutboundMessageRepository
	templateSvc TemplateService
	queueClient queue.Client
	providers   []string
	logger      *slog.Logger
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(
	store session.Store,
	batchRepo repository.BatchRepository,
	messageRepo repository.OutboundMessageRepository,
	templateSvc TemplateService,
	queueClient queue.Client,
	providers []string,
	logger *slog.Logger,
) DispatchService {
	return &dispatchService{
		store:       store,
		batchRepo:   batchRepo,
		messageRepo: messageRepo,
		templateSvc: templateSvc,
		queueClient: queueClient,
		providers:   providers,
		logger:      logger,
	}
}

// SendSelected renders the template for every selected row, records a batch
// with one message per row and queues the messages for the worker
func (s *dispatchService) SendSelected(ctx context.Context, sessionID string, req *SendSelectedRequest) (*SendSelectedResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if !s.isProvider(provider) {
		return nil, models.ErrUnknownProvider(req.Provider)
	}

	if err := s.templateSvc.ValidateTemplate(req.Template); err != nil {
		return nil, err
	}

	ls, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, mapSessionError(sessionID, err)
	}

	selected := ls.SelectedCustomers()
	if len(selected) == 0 {
		return nil, models.ErrInvalidInput("no rows selected")
	}

	log := logging.FromContext(ctx, s.logger)

	messages := make([]*models.OutboundMessage, 0, len(selected))
	for i := range selected {
		customer := &selected[i]

		content, err := s.templateSvc.Render(req.Template, customer)
		if err != nil {
			log.Error("failed to render template",
				slog.String("customer_id", customer.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		messages = append(messages, &models.OutboundMessage{
			CustomerID:      customer.ID,
			Phone:           customer.Phone,
			Provider:        provider,
			Status:          models.MessageStatusPending,
			RenderedContent: content,
		})
	}

	if len(messages) == 0 {
		return nil, models.ErrInvalidInput("no messages could be rendered for the selected rows")
	}

	batch := &models.Batch{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Provider:  provider,
		Template:  req.Template,
		Status:    models.BatchStatusQueued,
	}

	if err := s.batchRepo.CreateWithMessages(ctx, batch, messages); err != nil {
		log.Error("failed to create batch",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	queued, failed := s.enqueue(ctx, log, messages)

	if queued == 0 {
		// Every message is already marked failed; settle the batch to match
		if err := s.batchRepo.UpdateStatus(ctx, batch.ID, models.BatchStatusFailed); err != nil {
			log.Error("failed to update batch status",
				slog.String("batch_id", batch.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("failed to queue any message for batch %s", batch.ID)
	}

	status := models.BatchStatusSending
	if err := s.batchRepo.UpdateStatus(ctx, batch.ID, status); err != nil {
		// The worker settles the final status regardless
		log.Error("failed to update batch status",
			slog.String("batch_id", batch.ID),
			slog.String("error", err.Error()),
		)
	}

	log.Info("batch queued",
		slog.String("batch_id", batch.ID),
		slog.String("session_id", sessionID),
		slog.String("provider", provider),
		slog.Int("messages_queued", queued),
	)

	return &SendSelectedResult{
		BatchID:        batch.ID,
		MessagesQueued: queued,
		MessagesFailed: failed,
		Status:         status,
	}, nil
}

// enqueue publishes one job per message. A message the queue refuses is
// parked in the retry set for the promoter; if that fails too it is marked
// failed so its batch can still settle.
func (s *dispatchService) enqueue(ctx context.Context, log *slog.Logger, messages []*models.OutboundMessage) (queued, failed int) {
	for _, message := range messages {
		job := &models.MessageJob{OutboundMessageID: message.ID}

		err := s.queueClient.Publish(ctx, job)
		if err == nil {
			queued++
			continue
		}
		log.Warn("failed to queue message, parking in retry set",
			slog.Int64("message_id", message.ID),
			slog.String("error", err.Error()),
		)

		if err = s.queueClient.PublishAt(ctx, job, time.Now()); err == nil {
			queued++
			continue
		}

		reason := fmt.Sprintf("could not be queued: %s", err.Error())
		if uerr := s.messageRepo.UpdateStatus(ctx, message.ID, models.MessageStatusFailed, &reason); uerr != nil {
			log.Error("failed to mark unqueued message failed",
				slog.Int64("message_id", message.ID),
				slog.String("error", uerr.Error()),
			)
		}
		failed++
	}
	return queued, failed
}

// GetBatch retrieves a batch with delivery statistics
func (s *dispatchService) GetBatch(ctx context.Context, id string) (*models.BatchWithStats, error) {
	return s.batchRepo.GetWithStats(ctx, id)
}

// ListMessages retrieves outbound messages with pagination
func (s *dispatchService) ListMessages(ctx context.Context, filter models.OutboundMessageFilter) (*MessageListResult, error) {
	if filter.Status != "" && !models.IsValidMessageStatus(filter.Status) {
		return nil, models.ErrInvalidInput(fmt.Sprintf("invalid status: %s", filter.Status))
	}

	messages, totalCount, err := s.messageRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	return &MessageListResult{
		Data:       messages,
		Pagination: models.NewPaginationResult(filter.Page, filter.PageSize, totalCount),
	}, nil
}

// Providers lists the carrier providers a batch may be routed through
func (s *dispatchService) Providers() []string {
	return append([]string(nil), s.providers...)
}

func (s *dispatchService) isProvider(p string) bool {
	for _, known := range s.providers {
		if known == p {
			return true
		}
	}
	return false
}
