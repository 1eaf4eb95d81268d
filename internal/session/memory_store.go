package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
)

type memoryEntry struct {
	rec       record
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Expired sessions are
// invisible immediately and reclaimed by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewMemoryStore creates an in-memory store whose sessions live for ttl
// after their last write.
func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

func (m *MemoryStore) Create(ctx context.Context, s *ListSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[s.ID] = memoryEntry{rec: toRecord(s), expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*ListSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	return fromRecord(copyRecord(e.rec))
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*ListSession) error) (*ListSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}

	s, err := fromRecord(copyRecord(e.rec))
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}

	m.entries[id] = memoryEntry{rec: toRecord(s), expiresAt: m.now().Add(m.ttl)}
	return s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("expired list sessions removed", slog.Int("count", n))
			}
		}
	}
}

// lookup must be called with mu held.
func (m *MemoryStore) lookup(id string) (memoryEntry, bool) {
	e, ok := m.entries[id]
	if !ok || !m.now().Before(e.expiresAt) {
		return memoryEntry{}, false
	}
	return e, true
}

func copyRecord(r record) record {
	r.Customers = append([]models.Customer(nil), r.Customers...)
	r.Selection.Rows = append([]int(nil), r.Selection.Rows...)
	return r
}
