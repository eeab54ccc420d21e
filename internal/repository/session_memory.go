package repository

import (
	"context"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/models"
)

type memoryEntry struct {
	session   models.Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory. It suits a single
// replica and tests; expired sessions are dropped lazily.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(session.ID); ok {
		return errors.ErrConflict
	}
	s.sessions[session.ID] = &memoryEntry{
		session:   copySession(session),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemorySessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(id)
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := copySession(&entry.session)
	return &out, nil
}

func (s *MemorySessionStore) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(id)
	if !ok {
		return nil, errors.ErrNotFound
	}

	working := copySession(&entry.session)
	if err := fn(&working); err != nil {
		return nil, err
	}

	entry.session = working
	entry.expiresAt = s.now().Add(s.ttl)

	out := copySession(&working)
	return &out, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(id); !ok {
		return errors.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id := range s.sessions {
		if _, ok := s.lookup(id); ok {
			n++
		}
	}
	return n
}

// lookup must be called with mu held.
func (s *MemorySessionStore) lookup(id string) (*memoryEntry, bool) {
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.sessions, id)
		return nil, false
	}
	return entry, true
}

func copySession(s *models.Session) models.Session {
	out := *s
	out.Order = s.Order.Clone()
	return out
}
