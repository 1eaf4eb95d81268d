package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Raymond9734/bulk-sms-sender/internal/logging"
	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/repository"
	"github.com/Raymond9734/bulk-sms-sender/internal/selection"
	"github.com/Raymond9734/bulk-sms-sender/internal/session"
)

// ListService drives the customer table: opening list sessions, checkbox
// toggles and the bulk delete action
type ListService interface {
	Open(ctx context.Context, req *OpenSessionRequest) (*SessionView, error)
	View(ctx context.Context, id string) (*SessionView, error)
	SetRowSelected(ctx context.Context, id string, index int, req *SetSelectedRequest) (*SessionView, error)
	SetSelectAll(ctx context.Context, id string, req *SetSelectedRequest) (*SessionView, error)
	Close(ctx context.Context, id string) error
	DeleteSelected(ctx context.Context, id string) (*DeleteSelectedResult, error)
}

type listService struct {
	store        session.Store
	customerRepo repository.CustomerRepository
	logger       *slog.Logger
	now          func() time.Time
}

// NewListService creates a new list service
func NewListService(
	store session.Store,
	customerRepo repository.CustomerRepository,
	logger *slog.Logger,
) ListService {
	return &listService{
		store:        store,
		customerRepo: customerRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Open snapshots the filtered customer list into a new session
func (s *listService) Open(ctx context.Context, req *OpenSessionRequest) (*SessionView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	customers, err := s.load(ctx, models.CustomerFilter{Name: req.Name, Phone: req.Phone})
	if err != nil {
		return nil, err
	}

	ls := session.New(customers, s.now())
	if err := s.store.Create(ctx, ls); err != nil {
		return nil, fmt.Errorf("failed to create list session: %w", err)
	}

	logging.FromContext(ctx, s.logger).Info("list session opened",
		slog.String("session_id", ls.ID),
		slog.Int("rows", len(customers)),
	)

	return renderView(ls), nil
}

// View returns the current rows and checkbox states
func (s *listService) View(ctx context.Context, id string) (*SessionView, error) {
	ls, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapSessionError(id, err)
	}
	return renderView(ls), nil
}

// SetRowSelected sets one row's individual checkbox
func (s *listService) SetRowSelected(ctx context.Context, id string, index int, req *SetSelectedRequest) (*SessionView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ls, err := s.store.Update(ctx, id, func(ls *session.ListSession) error {
		return ls.Selection.SetRowSelected(index, *req.Selected)
	})
	if err != nil {
		return nil, mapSessionError(id, err)
	}

	logging.FromContext(ctx, s.logger).Debug("row selection changed",
		slog.String("session_id", id),
		slog.Int("index", index),
		slog.Bool("selected", *req.Selected),
	)

	return renderView(ls), nil
}

// SetSelectAll sets the header checkbox
func (s *listService) SetSelectAll(ctx context.Context, id string, req *SetSelectedRequest) (*SessionView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ls, err := s.store.Update(ctx, id, func(ls *session.ListSession) error {
		ls.Selection.SetSelectAll(*req.Selected)
		return nil
	})
	if err != nil {
		return nil, mapSessionError(id, err)
	}

	logging.FromContext(ctx, s.logger).Debug("select all changed",
		slog.String("session_id", id),
		slog.Bool("selected", *req.Selected),
	)

	return renderView(ls), nil
}

// Close discards the session
func (s *listService) Close(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to close list session: %w", err)
	}
	return nil
}

// DeleteSelected removes the customers selected when the request arrived and
// rebuilds the session from what remains, with every checkbox cleared.
// The delete runs once, outside the session update, because a store may
// rerun its update function when it loses a race.
func (s *listService) DeleteSelected(ctx context.Context, id string) (*DeleteSelectedResult, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapSessionError(id, err)
	}

	selected := current.SelectedCustomers()
	if len(selected) == 0 {
		return nil, models.ErrInvalidInput("no rows selected")
	}

	ids := make([]string, 0, len(selected))
	drop := make(map[string]bool, len(selected))
	for _, c := range selected {
		ids = append(ids, c.ID)
		drop[c.ID] = true
	}

	deleted, err := s.customerRepo.DeleteBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to delete customers: %w", err)
	}

	// Rows are matched by customer ID so a rerun after a concurrent toggle
	// drops exactly the customers deleted above
	ls, err := s.store.Update(ctx, id, func(ls *session.ListSession) error {
		remaining := make([]models.Customer, 0, len(ls.Customers))
		for _, c := range ls.Customers {
			if !drop[c.ID] {
				remaining = append(remaining, c)
			}
		}
		ls.Reset(remaining)
		return nil
	})
	if err != nil {
		return nil, mapSessionError(id, err)
	}

	logging.FromContext(ctx, s.logger).Info("selected customers deleted",
		slog.String("session_id", id),
		slog.Int64("deleted", deleted),
		slog.Int("remaining", len(ls.Customers)),
	)

	return &DeleteSelectedResult{
		Deleted: deleted,
		Session: renderView(ls),
	}, nil
}

func (s *listService) load(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, error) {
	rows, err := s.customerRepo.ListAll(ctx, filter, models.MaxSessionRows)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	customers := make([]models.Customer, 0, len(rows))
	for _, c := range rows {
		customers = append(customers, *c)
	}
	return customers, nil
}

// renderView builds the per-row checkbox state shown to the operator
func renderView(ls *session.ListSession) *SessionView {
	sel := ls.Selection
	rows := make([]RowView, len(ls.Customers))

	for i, c := range ls.Customers {
		selected, _ := sel.RowSelected(i)
		checked, _ := sel.EffectiveSelected(i)
		rows[i] = RowView{
			Index:    i,
			Customer: c,
			Selected: selected,
			Checked:  checked,
		}
	}

	return &SessionView{
		ID:              ls.ID,
		Revision:        ls.Revision,
		SelectAll:       sel.SelectAll(),
		Rows:            rows,
		SelectedIndices: sel.SelectedIndices(),
		CreatedAt:       ls.CreatedAt,
	}
}

// mapSessionError translates store and engine errors into AppErrors
func mapSessionError(id string, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return models.ErrNotFoundWithMsg(fmt.Sprintf("list session %s not found", id))
	case errors.Is(err, selection.ErrIndexOutOfRange):
		return models.ErrIndexOutOfRange(err)
	case errors.Is(err, session.ErrContention):
		return models.ErrConflictWithMsg("list session is busy, retry the request")
	default:
		return err
	}
}
