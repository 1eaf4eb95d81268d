package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/queue"
	"github.com/Raymond9734/bulk-sms-sender/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCustomerRepo keeps customers in insertion order
type mockCustomerRepo struct {
	customers []*models.Customer
	upsertErr error
	deleteErr error
	deletes   [][]string
}

func (m *mockCustomerRepo) UpsertBatch(ctx context.Context, customers []*models.Customer) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, c := range customers {
		replaced := false
		for i, existing := range m.customers {
			if existing.ID == c.ID {
				m.customers[i] = c
				replaced = true
			}
		}
		if !replaced {
			m.customers = append(m.customers, c)
		}
	}
	return nil
}

func (m *mockCustomerRepo) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	for _, c := range m.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, models.ErrNotFoundWithMsg("customer not found")
}

func (m *mockCustomerRepo) filter(filter models.CustomerFilter) []*models.Customer {
	out := []*models.Customer{}
	for _, c := range m.customers {
		if filter.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Phone != "" && !strings.Contains(c.Phone, filter.Phone) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *mockCustomerRepo) List(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, int64, error) {
	filtered := m.filter(filter)
	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)
	start := models.CalculateOffset(filter.Page, filter.PageSize)
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + filter.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], int64(len(filtered)), nil
}

func (m *mockCustomerRepo) ListAll(ctx context.Context, filter models.CustomerFilter, limit int) ([]*models.Customer, error) {
	filtered := m.filter(filter)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (m *mockCustomerRepo) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.deletes = append(m.deletes, ids)
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := []*models.Customer{}
	var n int64
	for _, c := range m.customers {
		if drop[c.ID] {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.customers = kept
	return n, nil
}

type mockBatchRepo struct {
	batches   map[string]*models.Batch
	messages  []*models.OutboundMessage
	createErr error
	nextID    int64
}

func (m *mockBatchRepo) CreateWithMessages(ctx context.Context, batch *models.Batch, messages []*models.OutboundMessage) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.batches == nil {
		m.batches = map[string]*models.Batch{}
	}
	batch.CreatedAt = time.Now()
	m.batches[batch.ID] = batch
	for _, msg := range messages {
		m.nextID++
		msg.ID = m.nextID
		msg.BatchID = batch.ID
		m.messages = append(m.messages, msg)
	}
	return nil
}

func (m *mockBatchRepo) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, models.ErrNotFoundWithMsg("batch not found")
	}
	return b, nil
}

func (m *mockBatchRepo) GetWithStats(ctx context.Context, id string) (*models.BatchWithStats, error) {
	b, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var stats models.BatchStats
	for _, msg := range m.messages {
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

type mockMessageRepo struct {
	messages []*models.OutboundMessage
	statuses map[int64]string
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id int64) (*models.OutboundMessage, error) {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, models.ErrNotFoundWithMsg("message not found")
}

func (m *mockMessageRepo) List(ctx context.Context, filter models.OutboundMessageFilter) ([]*models.OutboundMessage, int64, error) {
	out := []*models.OutboundMessage{}
	for _, msg := range m.messages {
		if filter.BatchID != "" && msg.BatchID != filter.BatchID {
			continue
		}
		if filter.Status != "" && msg.Status != filter.Status {
			continue
		}
		out = append(out, msg)
	}
	return out, int64(len(out)), nil
}

func (m *mockMessageRepo) UpdateStatus(ctx context.Context, id int64, status string, lastError *string) error {
	if m.statuses == nil {
		m.statuses = map[int64]string{}
	}
	m.statuses[id] = status
	return nil
}

// Unused methods for interface compliance
func (m *mockMessageRepo) RecordFailure(ctx context.Context, id int64, lastError string) (int, error) {
	return 0, nil
}

type mockQueue struct {
	published []*models.MessageJob
	scheduled []*models.MessageJob
	failIDs   map[int64]bool
	failAtIDs map[int64]bool
}

func (m *mockQueue) Publish(ctx context.Context, job *models.MessageJob) error {
	if m.failIDs[job.OutboundMessageID] {
		return errors.New("redis unavailable")
	}
	m.published = append(m.published, job)
	return nil
}

func (m *mockQueue) PublishAt(ctx context.Context, job *models.MessageJob, at time.Time) error {
	if m.failAtIDs[job.OutboundMessageID] {
		return errors.New("redis unavailable")
	}
	m.scheduled = append(m.scheduled, job)
	return nil
}

// Unused methods for interface compliance
func (m *mockQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
func (m *mockQueue) Consume(ctx context.Context, handler queue.MessageHandler, concurrency int) error {
	return nil
}
func (m *mockQueue) Close() error                     { return nil }
func (m *mockQueue) Health(ctx context.Context) error { return nil }

func seedCustomers(n int) *mockCustomerRepo {
	repo := &mockCustomerRepo{}
	names := []string{"Alice Wanjiru", "Brian Otieno", "Carol Njeri", "David Kamau", "Esther Achieng"}
	for i := 0; i < n; i++ {
		repo.customers = append(repo.customers, &models.Customer{
			ID:    "cust-" + string(rune('0'+i)),
			Name:  names[i%len(names)],
			Phone: "+2547000000" + string(rune('0'+i)),
		})
	}
	return repo
}

func boolPtr(v bool) *bool {
	return &v
}

// rerunStore behaves like a store that lost an optimistic race: the first
// Update runs fn on a copy that is thrown away, lets between() write to the
// session, then runs fn again against the fresh state.
type rerunStore struct {
	*session.MemoryStore
	between func(ctx context.Context, id string)
	reruns  int
}

func (r *rerunStore) Update(ctx context.Context, id string, fn func(*session.ListSession) error) (*session.ListSession, error) {
	lost, err := r.MemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(lost); err != nil {
		return nil, err
	}

	if r.between != nil {
		r.between(ctx, id)
		r.between = nil
		r.reruns++
	}
	return r.MemoryStore.Update(ctx, id, fn)
}
