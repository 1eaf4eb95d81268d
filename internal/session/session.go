// Package session stores list sessions: a snapshot of the customer list as
// it was shown to an operator, plus which of its rows are checked.
//
// The selection engine itself is single-threaded. Stores serialize every
// read-modify-write through Update so concurrent requests against one
// session never interleave.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/selection"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("list session not found")

// ListSession is one operator's view of the customer list.
type ListSession struct {
	ID        string
	Customers []models.Customer
	Selection *selection.Selection
	Revision  int64
	CreatedAt time.Time
}

// New creates a session over customers with nothing selected.
func New(customers []models.Customer, now time.Time) *ListSession {
	s := &ListSession{
		ID:        uuid.NewString(),
		Customers: customers,
		CreatedAt: now.UTC(),
	}
	s.attach(selection.New(len(customers)))
	return s
}

// Reset replaces the customer rows and clears every flag.
func (s *ListSession) Reset(customers []models.Customer) {
	s.Customers = customers
	s.attach(selection.New(len(customers)))
	s.Revision++
}

// SelectedCustomers returns the customers whose rows are effectively selected,
// in list order.
func (s *ListSession) SelectedCustomers() []models.Customer {
	indices := s.Selection.SelectedIndices()
	out := make([]models.Customer, 0, len(indices))
	for _, i := range indices {
		out = append(out, s.Customers[i])
	}
	return out
}

// attach installs sel and bumps Revision on each of its changes.
func (s *ListSession) attach(sel *selection.Selection) {
	s.Selection = sel
	sel.Subscribe(func(selection.Change) {
		s.Revision++
	})
}

// record is the stored form of a ListSession.
type record struct {
	ID        string             `json:"id"`
	Customers []models.Customer  `json:"customers"`
	Selection selection.Snapshot `json:"selection"`
	Revision  int64              `json:"revision"`
	CreatedAt time.Time          `json:"created_at"`
}

func toRecord(s *ListSession) record {
	return record{
		ID:        s.ID,
		Customers: s.Customers,
		Selection: s.Selection.Snapshot(),
		Revision:  s.Revision,
		CreatedAt: s.CreatedAt,
	}
}

func fromRecord(r record) (*ListSession, error) {
	sel, err := selection.FromSnapshot(r.Selection)
	if err != nil {
		return nil, err
	}
	s := &ListSession{
		ID:        r.ID,
		Customers: r.Customers,
		Revision:  r.Revision,
		CreatedAt: r.CreatedAt,
	}
	s.attach(sel)
	return s, nil
}

// Store persists list sessions.
type Store interface {
	// Create saves a new session.
	Create(ctx context.Context, s *ListSession) error

	// Get returns a copy of the session. Changes to it are not saved.
	Get(ctx context.Context, id string) (*ListSession, error)

	// Update loads the session, runs fn and saves the result unless fn
	// fails. Updates to one session are applied one at a time.
	Update(ctx context.Context, id string, fn func(*ListSession) error) (*ListSession, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
