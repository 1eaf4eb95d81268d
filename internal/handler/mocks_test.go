package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockCustomerService struct {
	imported string
	importFn func(r io.Reader) (*service.ImportResult, error)
	customer *models.Customer
	filter   models.CustomerFilter
}

func (m *mockCustomerService) ImportCSV(ctx context.Context, r io.Reader) (*service.ImportResult, error) {
	if m.importFn != nil {
		return m.importFn(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.imported = string(data)
	return &service.ImportResult{Imported: 1, Rejected: []service.ImportRowError{}}, nil
}

func (m *mockCustomerService) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	if m.customer == nil || m.customer.ID != id {
		return nil, models.ErrNotFoundWithMsg("customer not found")
	}
	return m.customer, nil
}

func (m *mockCustomerService) List(ctx context.Context, filter models.CustomerFilter) (*service.CustomerListResult, error) {
	m.filter = filter
	return &service.CustomerListResult{Data: []*models.Customer{}}, nil
}

type mockListService struct {
	index    int
	selected *bool
	err      error
	closed   string
}

func (m *mockListService) view(id string) *service.SessionView {
	return &service.SessionView{ID: id, Rows: []service.RowView{}, SelectedIndices: []int{}}
}

func (m *mockListService) Open(ctx context.Context, req *service.OpenSessionRequest) (*service.SessionView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.view("sess-1"), nil
}

func (m *mockListService) View(ctx context.Context, id string) (*service.SessionView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.view(id), nil
}

func (m *mockListService) SetRowSelected(ctx context.Context, id string, index int, req *service.SetSelectedRequest) (*service.SessionView, error) {
	m.index = index
	m.selected = req.Selected
	if m.err != nil {
		return nil, m.err
	}
	return m.view(id), nil
}

func (m *mockListService) SetSelectAll(ctx context.Context, id string, req *service.SetSelectedRequest) (*service.SessionView, error) {
	m.selected = req.Selected
	if m.err != nil {
		return nil, m.err
	}
	return m.view(id), nil
}

func (m *mockListService) Close(ctx context.Context, id string) error {
	m.closed = id
	return m.err
}

func (m *mockListService) DeleteSelected(ctx context.Context, id string) (*service.DeleteSelectedResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.DeleteSelectedResult{Deleted: 2, Session: m.view(id)}, nil
}

type mockDispatchService struct {
	req    *service.SendSelectedRequest
	filter models.OutboundMessageFilter
	err    error
}

func (m *mockDispatchService) SendSelected(ctx context.Context, sessionID string, req *service.SendSelectedRequest) (*service.SendSelectedResult, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &service.SendSelectedResult{BatchID: "batch-1", MessagesQueued: 2, Status: models.BatchStatusQueued}, nil
}

func (m *mockDispatchService) GetBatch(ctx context.Context, id string) (*models.BatchWithStats, error) {
	if id != "batch-1" {
		return nil, models.ErrNotFoundWithMsg("batch not found")
	}
	return &models.BatchWithStats{Batch: models.Batch{ID: id}}, nil
}

func (m *mockDispatchService) ListMessages(ctx context.Context, filter models.OutboundMessageFilter) (*service.MessageListResult, error) {
	m.filter = filter
	return &service.MessageListResult{Data: []*models.OutboundMessage{}}, nil
}

func (m *mockDispatchService) Providers() []string {
	return []string{"airtel", "safaricom"}
}

type mockChecker struct {
	err error
}

func (m mockChecker) Health(ctx context.Context) error { return m.err }

type testServer struct {
	router    http.Handler
	customers *mockCustomerService
	lists     *mockListService
	dispatch  *mockDispatchService
}

func newTestServer(maxImport int64) *testServer {
	ts := &testServer{
		customers: &mockCustomerService{},
		lists:     &mockListService{},
		dispatch:  &mockDispatchService{},
	}
	logger := testLogger()
	ts.router = NewRouter(Handlers{
		Health:   NewHealthHandler(map[string]HealthChecker{"database": mockChecker{}, "queue": mockChecker{}}, logger),
		Customer: NewCustomerHandler(ts.customers, maxImport, logger),
		Session:  NewSessionHandler(ts.lists, ts.dispatch, logger),
		Batch:    NewBatchHandler(ts.dispatch, logger),
	}, logger)
	return ts
}

var errBoom = errors.New("boom")
