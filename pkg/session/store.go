package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/radialtree/pkg/errors"
)

// DefaultTTL is how long an idle session is kept by a [MemoryStore].
const DefaultTTL = 30 * time.Minute

// Entry is a stored session. Do serializes access to it, so concurrent
// requests against the same session see events in arrival order.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	mu      sync.Mutex
	session *Session
	ttl     time.Duration
}

// Do runs fn with exclusive access to the session and extends its expiry.
func (e *Entry) Do(fn func(s *Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ExpiresAt = time.Now().Add(e.ttl)
	return fn(e.session)
}

// IsExpired reports whether the entry has passed its expiry.
func (e *Entry) IsExpired(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.After(e.ExpiresAt)
}

// MemoryStore keeps sessions in memory keyed by a random UUID. Sessions do
// not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
}

// NewMemoryStore creates a store. A ttl of zero uses [DefaultTTL].
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: make(map[string]*Entry), ttl: ttl}
}

// Add stores s under a new ID and returns its entry.
func (m *MemoryStore) Add(s *Session) *Entry {
	now := time.Now()
	e := &Entry{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		session:   s,
		ttl:       m.ttl,
	}
	m.mu.Lock()
	m.entries[e.ID] = e
	m.mu.Unlock()
	return e
}

// Get returns the entry for id. Unknown and expired IDs are
// SESSION_NOT_FOUND errors.
func (m *MemoryStore) Get(id string) (*Entry, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %q not found", id)
	}
	if e.IsExpired(time.Now()) {
		_ = m.Delete(id)
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %q expired", id)
	}
	return e, nil
}

// Delete removes id and closes its surface. Deleting a missing ID is not an
// error.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return e.Do(func(s *Session) error { return s.Close() })
}

// Each calls fn for every live session, one at a time.
func (m *MemoryStore) Each(fn func(id string, s *Session) error) error {
	m.mu.RLock()
	entries := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, e := range entries {
		if err := e.Do(func(s *Session) error { return fn(e.ID, s) }); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup removes expired sessions and returns how many were removed.
func (m *MemoryStore) Cleanup(ctx context.Context) int {
	now := time.Now()
	m.mu.RLock()
	var expired []string
	for id, e := range m.entries {
		if ctx.Err() != nil {
			break
		}
		if e.IsExpired(now) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		_ = m.Delete(id)
	}
	return len(expired)
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
