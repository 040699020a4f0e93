package session

import (
	"context"
	"sync"
	"time"

	"github.com/avdeev/driveauth/internal/common"
)

// MemoryStore keeps session records in an in-process arena keyed by
// session ID. Read-modify-write goes through a single mutex, so a lockout
// increment can never be lost to a concurrent submission. Expiry is
// evaluated lazily on access; there is no background sweeper.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(id)
	if err != nil {
		return nil, err
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// live returns the stored record if it has not expired, dropping it
// otherwise. Callers must hold the mutex.
func (m *MemoryStore) live(id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, common.ErrNoSession
	}
	if time.Now().After(s.ExpiresAt) {
		delete(m.sessions, id)
		return nil, common.ErrNoSession
	}
	return s, nil
}
