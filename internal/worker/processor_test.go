package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/queue"
)

// Mock repositories for testing
type mockOutboundMessageRepo struct {
	messages map[int64]*models.OutboundMessage
	updates  []statusUpdate
}

type statusUpdate struct {
	id        int64
	status    string
	lastError *string
}

func (m *mockOutboundMessageRepo) GetByID(ctx context.Context, id int64) (*models.OutboundMessage, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, models.ErrNotFoundWithMsg("message not found")
	}
	copied := *msg
	return &copied, nil
}

func (m *mockOutboundMessageRepo) UpdateStatus(ctx context.Context, id int64, status string, lastError *string) error {
	msg, ok := m.messages[id]
	if !ok {
		return models.ErrNotFoundWithMsg("message not found")
	}
	msg.Status = status
	msg.LastError = lastError
	m.updates = append(m.updates, statusUpdate{id, status, lastError})
	return nil
}

func (m *mockOutboundMessageRepo) RecordFailure(ctx context.Context, id int64, lastError string) (int, error) {
	msg, ok := m.messages[id]
	if !ok {
		return 0, models.ErrNotFoundWithMsg("message not found")
	}
	msg.RetryCount++
	msg.LastError = &lastError
	return msg.RetryCount, nil
}

// Unused methods for interface compliance
func (m *mockOutboundMessageRepo) List(ctx context.Context, filter models.OutboundMessageFilter) ([]*models.OutboundMessage, int64, error) {
	return nil, 0, nil
}

// mockBatchRepo derives stats from the message repo so settlement sees real counts
type mockBatchRepo struct {
	batches  map[string]*models.Batch
	messages *mockOutboundMessageRepo
}

func (m *mockBatchRepo) GetWithStats(ctx context.Context, id string) (*models.BatchWithStats, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, models.ErrNotFoundWithMsg("batch not found")
	}
	var stats models.BatchStats
	for _, msg := range m.messages.messages {
		if msg.BatchID != id {
			continue
		}
		stats.Total++
		switch msg.Status {
		case models.MessageStatusPending:
			stats.Pending++
		case models.MessageStatusSent:
			stats.Sent++
		case models.MessageStatusFailed:
			stats.Failed++
		}
	}
	return &models.BatchWithStats{Batch: *b, Stats: stats}, nil
}

func (m *mockBatchRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	b, ok := m.batches[id]
	if !ok {
		return models.ErrNotFoundWithMsg("batch not found")
	}
	b.Status = status
	return nil
}

// Unused methods for interface compliance
func (m *mockBatchRepo) CreateWithMessages(ctx context.Context, batch *models.Batch, messages []*models.OutboundMessage) error {
	return nil
}
func (m *mockBatchRepo) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	return nil, nil
}

type scheduledJob struct {
	job *models.MessageJob
	at  time.Time
}

type mockQueue struct {
	published  []*models.MessageJob
	scheduled  []scheduledJob
	publishErr error
}

func (m *mockQueue) Publish(ctx context.Context, job *models.MessageJob) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, job)
	return nil
}

func (m *mockQueue) PublishAt(ctx context.Context, job *models.MessageJob, at time.Time) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.scheduled = append(m.scheduled, scheduledJob{job, at})
	return nil
}

// Unused methods for interface compliance
func (m *mockQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) { return 0, nil }
func (m *mockQueue) Consume(ctx context.Context, handler queue.MessageHandler, concurrency int) error {
	return nil
}
func (m *mockQueue) Close() error                     { return nil }
func (m *mockQueue) Health(ctx context.Context) error { return nil }

type testMockSender struct {
	shouldFail bool
	block      bool
	cancel     context.CancelFunc
	calls      []sendCall
}

type sendCall struct {
	phone   string
	content string
}

func (m *testMockSender) Send(ctx context.Context, phone, content string) error {
	m.calls = append(m.calls, sendCall{phone, content})
	if m.cancel != nil {
		m.cancel()
	}
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.shouldFail {
		return errors.New("mock sender failed: simulated network error")
	}
	return nil
}

type fixture struct {
	messages  *mockOutboundMessageRepo
	batches   *mockBatchRepo
	queue     *mockQueue
	sender    *testMockSender
	processor *MessageProcessor
	now       time.Time
}

func newFixture(retryCount, maxAttempts int, sender *testMockSender) *fixture {
	messages := &mockOutboundMessageRepo{
		messages: map[int64]*models.OutboundMessage{
			1: {
				ID:              1,
				BatchID:         "batch-1",
				CustomerID:      "cust-1",
				Phone:           "+254712345001",
				Provider:        "safaricom",
				Status:          models.MessageStatusPending,
				RenderedContent: "Hi Alice, check out our offer!",
				RetryCount:      retryCount,
			},
		},
	}
	batches := &mockBatchRepo{
		batches: map[string]*models.Batch{
			"batch-1": {ID: "batch-1", Provider: "safaricom", Status: models.BatchStatusSending},
		},
		messages: messages,
	}
	q := &mockQueue{}

	f := &fixture{
		messages: messages,
		batches:  batches,
		queue:    q,
		sender:   sender,
		now:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.processor = NewMessageProcessor(messages, batches, Router{"safaricom": sender}, q,
		maxAttempts, Backoff{Base: time.Second, Max: time.Minute}, logger)
	f.processor.now = func() time.Time { return f.now }

	return f
}

func TestMessageProcessor_Process_Success(t *testing.T) {
	f := newFixture(0, 3, &testMockSender{})

	err := f.processor.Process(context.Background(), &models.MessageJob{OutboundMessageID: 1})
	if err != nil {
		t.Errorf("Process() error = %v, want nil", err)
	}

	if len(f.messages.updates) != 1 || f.messages.updates[0].status != models.MessageStatusSent {
		t.Fatalf("updates = %+v, want one sent update", f.messages.updates)
	}

	if len(f.sender.calls) != 1 {
		t.Fatalf("Expected 1 sender call, got %d", len(f.sender.calls))
	}
	if f.sender.calls[0].phone != "+254712345001" {
		t.Errorf("Sender phone = %s, want +254712345001", f.sender.calls[0].phone)
	}

	if got := f.batches.batches["batch-1"].Status; got != models.BatchStatusSent {
		t.Errorf("batch status = %s, want %s", got, models.BatchStatusSent)
	}
}

func TestMessageProcessor_Process_Failure_WithRetries(t *testing.T) {
	tests := []struct {
		name            string
		retryCount      int
		maxAttempts     int
		wantStatus      string
		wantRetryCount  int
		wantScheduledIn time.Duration
		wantErr         bool
		wantBatchStatus string
	}{
		{
			name:            "first failure, retry available",
			retryCount:      0,
			maxAttempts:     3,
			wantStatus:      models.MessageStatusPending,
			wantRetryCount:  1,
			wantScheduledIn: time.Second,
			wantErr:         true,
			wantBatchStatus: models.BatchStatusSending,
		},
		{
			name:            "second failure, backoff doubles",
			retryCount:      1,
			maxAttempts:     3,
			wantStatus:      models.MessageStatusPending,
			wantRetryCount:  2,
			wantScheduledIn: 2 * time.Second,
			wantErr:         true,
			wantBatchStatus: models.BatchStatusSending,
		},
		{
			name:            "last attempt, becomes permanent",
			retryCount:      2,
			maxAttempts:     3,
			wantStatus:      models.MessageStatusFailed,
			wantRetryCount:  3,
			wantErr:         false,
			wantBatchStatus: models.BatchStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.retryCount, tt.maxAttempts, &testMockSender{shouldFail: true})

			err := f.processor.Process(context.Background(), &models.MessageJob{OutboundMessageID: 1})

			if (err != nil) != tt.wantErr {
				t.Errorf("Process() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrRetryScheduled) {
				t.Errorf("Process() error = %v, want ErrRetryScheduled", err)
			}

			msg := f.messages.messages[1]
			if msg.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", msg.Status, tt.wantStatus)
			}
			if msg.RetryCount != tt.wantRetryCount {
				t.Errorf("RetryCount = %d, want %d", msg.RetryCount, tt.wantRetryCount)
			}
			if msg.LastError == nil {
				t.Error("LastError not recorded")
			}

			if tt.wantScheduledIn > 0 {
				if len(f.queue.scheduled) != 1 {
					t.Fatalf("scheduled %d retries, want 1", len(f.queue.scheduled))
				}
				s := f.queue.scheduled[0]
				if got := s.at.Sub(f.now); got != tt.wantScheduledIn {
					t.Errorf("retry delay = %v, want %v", got, tt.wantScheduledIn)
				}
				if s.job.Attempt != tt.wantRetryCount {
					t.Errorf("job attempt = %d, want %d", s.job.Attempt, tt.wantRetryCount)
				}
			} else if len(f.queue.scheduled) != 0 {
				t.Errorf("scheduled %d retries, want none", len(f.queue.scheduled))
			}

			if got := f.batches.batches["batch-1"].Status; got != tt.wantBatchStatus {
				t.Errorf("batch status = %s, want %s", got, tt.wantBatchStatus)
			}
		})
	}
}

func TestMessageProcessor_Process_RetrySchedulingFails(t *testing.T) {
	f := newFixture(0, 3, &testMockSender{shouldFail: true})
	f.queue.publishErr = errors.New("redis down")

	if err := f.processor.Process(context.Background(), &models.MessageJob{OutboundMessageID: 1}); err != nil {
		t.Errorf("Process() error = %v, want nil", err)
	}
	if got := f.messages.messages[1].Status; got != models.MessageStatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
}

func TestMessageProcessor_Process_SkipsSettled(t *testing.T) {
	f := newFixture(0, 3, &testMockSender{})
	f.messages.messages[1].Status = models.MessageStatusSent

	if err := f.processor.Process(context.Background(), &models.MessageJob{OutboundMessageID: 1}); err != nil {
		t.Errorf("Process() error = %v", err)
	}
	if len(f.sender.calls) != 0 {
		t.Errorf("sender called %d times for settled message", len(f.sender.calls))
	}
}

func TestMessageProcessor_Process_UnknownProvider(t *testing.T) {
	f := newFixture(0, 3, &testMockSender{})
	f.messages.messages[1].Provider = "orange"

	if err := f.processor.Process(context.Background(), &models.MessageJob{OutboundMessageID: 1}); err != nil {
		t.Errorf("Process() error = %v", err)
	}
	msg := f.messages.messages[1]
	if msg.Status != models.MessageStatusFailed || msg.LastError == nil {
		t.Errorf("message = %+v, want failed with reason", msg)
	}
}

func TestMessageProcessor_Process_MessageNotFound(t *testing.T) {
	f := newFixture(0, 3, &testMockSender{})

	err := f.processor.Process(context.Background(), &models.MessageJob{OutboundMessageID: 99})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Process() error = %v, want ErrNotFound", err)
	}
}

func TestMessageProcessor_Process_InterruptedDuringSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(0, 3, &testMockSender{block: true, cancel: cancel})

	err := f.processor.Process(ctx, &models.MessageJob{OutboundMessageID: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}

	if len(f.sender.calls) != 1 {
		t.Fatalf("sender calls = %d, want 1", len(f.sender.calls))
	}
	msg := f.messages.messages[1]
	if msg.RetryCount != 0 || msg.Status != models.MessageStatusPending {
		t.Errorf("interrupted send counted as failure: %+v", msg)
	}
	if len(f.queue.published) != 1 {
		t.Errorf("requeued %d jobs, want 1", len(f.queue.published))
	}
}

func TestMessageProcessor_Process_CancelledBeforeStart(t *testing.T) {
	f := newFixture(0, 3, &testMockSender{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &models.MessageJob{OutboundMessageID: 1}
	err := f.processor.Process(ctx, job)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}

	if len(f.sender.calls) != 0 {
		t.Errorf("sender called %d times after shutdown", len(f.sender.calls))
	}
	if len(f.messages.updates) != 0 {
		t.Errorf("message updated after shutdown: %+v", f.messages.updates)
	}
	if len(f.queue.published) != 1 || f.queue.published[0] != job {
		t.Errorf("published = %v, want the job requeued once", f.queue.published)
	}
	if msg := f.messages.messages[1]; msg.Status != models.MessageStatusPending {
		t.Errorf("status = %s, want pending", msg.Status)
	}
}

func TestMessageProcessor_Process_CancelledRequeueFails(t *testing.T) {
	f := newFixture(0, 3, &testMockSender{})
	f.queue.publishErr = errors.New("redis unavailable")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.processor.Process(ctx, &models.MessageJob{OutboundMessageID: 1})
	if err == nil || errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want requeue failure", err)
	}
}
