// Package selection tracks which rows of a customer list are checked.
//
// Each row carries its own flag and the list carries one global select-all
// flag. The state shown for a row is the logical OR of the two: turning
// select-all off reveals whatever the row was individually set to before.
//
// A Selection is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves (see internal/session).
package selection

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned when a row index falls outside [0, Len()).
var ErrIndexOutOfRange = errors.New("row index out of range")

// IndexError reports an out-of-range row access.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("row index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// Change describes a single mutation. Index is -1 for select-all changes.
type Change struct {
	Index int
	Value bool
}

// IsSelectAll reports whether the change came from the select-all flag.
func (c Change) IsSelectAll() bool {
	return c.Index < 0
}

// Listener is notified after every mutation that was applied.
type Listener func(Change)

// Selection holds per-row flags plus the select-all flag for N rows.
type Selection struct {
	rows      []bool
	selectAll bool
	listeners map[int]Listener
	nextID    int
}

// New creates a selection for n rows with every flag cleared.
// Negative n is treated as zero.
func New(n int) *Selection {
	if n < 0 {
		n = 0
	}
	return &Selection{rows: make([]bool, n)}
}

// Len returns the number of rows.
func (s *Selection) Len() int {
	return len(s.rows)
}

// SelectAll returns the global flag.
func (s *Selection) SelectAll() bool {
	return s.selectAll
}

// SetSelectAll sets the global flag. Individual row flags are left as they are.
func (s *Selection) SetSelectAll(value bool) {
	s.selectAll = value
	s.notify(Change{Index: -1, Value: value})
}

// RowSelected returns the individual flag of a row, ignoring select-all.
func (s *Selection) RowSelected(index int) (bool, error) {
	if err := s.check(index); err != nil {
		return false, err
	}
	return s.rows[index], nil
}

// SetRowSelected sets one row's individual flag.
// An out-of-range index leaves every flag untouched.
func (s *Selection) SetRowSelected(index int, value bool) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.rows[index] = value
	s.notify(Change{Index: index, Value: value})
	return nil
}

// EffectiveSelected returns rowFlag[index] || selectAll.
func (s *Selection) EffectiveSelected(index int) (bool, error) {
	if err := s.check(index); err != nil {
		return false, err
	}
	return s.rows[index] || s.selectAll, nil
}

// SelectedIndices returns, in ascending order, every index whose effective
// state is true. The result is freshly computed on each call.
func (s *Selection) SelectedIndices() []int {
	if s.selectAll {
		out := make([]int, len(s.rows))
		for i := range out {
			out[i] = i
		}
		return out
	}

	out := []int{}
	for i, v := range s.rows {
		if v {
			out = append(out, i)
		}
	}
	return out
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Selection) Subscribe(l Listener) (unsubscribe func()) {
	if s.listeners == nil {
		s.listeners = make(map[int]Listener)
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		delete(s.listeners, id)
	}
}

func (s *Selection) notify(c Change) {
	for _, l := range s.listeners {
		l(c)
	}
}

func (s *Selection) check(index int) error {
	if index < 0 || index >= len(s.rows) {
		return &IndexError{Index: index, Len: len(s.rows)}
	}
	return nil
}
