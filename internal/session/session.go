// Package session owns the authenticated-identity lifecycle: creation,
// expiry extension, destruction, and the per-session security state
// (outstanding challenge, lockout record) that must survive between
// requests of the same browser session.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avdeev/driveauth/internal/directory"
	"github.com/avdeev/driveauth/internal/lockout"
)

// Session is one browser session's server-side record. A session with a
// nil User is anonymous and has no protected privileges.
type Session struct {
	ID   string
	User *directory.Identity

	// Outstanding challenge. CaptchaSet guards against a zero answer
	// being accidentally verifiable; a consumed challenge clears it.
	CaptchaAnswer int
	CaptchaSet    bool

	Lockout lockout.State

	Remember  bool
	ExpiresAt time.Time
}

// Authenticated reports whether the session carries identity attributes.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

// Store abstracts session persistence so records can live in memory
// (default) or in PostgreSQL. Implementations must treat Update as a
// single atomic read-modify-write step per session.
type Store interface {
	// Get retrieves a live session. Expired or unknown sessions yield
	// common.ErrNoSession.
	Get(ctx context.Context, id string) (*Session, error)

	// Put creates or replaces a session record.
	Put(ctx context.Context, s *Session) error

	// Update applies fn to the session under the store's atomicity
	// guarantee and persists the result. The updated session is returned.
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
}

// Manager implements the session lifecycle on top of a Store.
type Manager struct {
	store       Store
	ttl         time.Duration
	rememberTTL time.Duration
}

// NewManager builds a Manager. ttl is the default record lifetime;
// rememberTTL is the long-lived lifetime applied when "remember me" is
// requested at login.
func NewManager(store Store, ttl, rememberTTL time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, rememberTTL: rememberTTL}
}

// Begin creates a fresh anonymous session so challenge and lockout state
// have a home before any authentication happens.
func (m *Manager) Begin(ctx context.Context) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the live session for id, or common.ErrNoSession.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// Update applies fn to the session atomically.
func (m *Manager) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	return m.store.Update(ctx, id, fn)
}

// Authenticate binds the identity to the session, clears the lockout
// state and sets the expiry policy: the long-lived duration when remember
// is requested, the default lifetime otherwise.
func (m *Manager) Authenticate(ctx context.Context, id string, user *directory.Identity, remember bool) (*Session, error) {
	return m.store.Update(ctx, id, func(s *Session) error {
		s.User = user
		s.Lockout = s.Lockout.Success()
		s.Remember = remember
		if remember {
			s.ExpiresAt = time.Now().Add(m.rememberTTL)
		} else {
			s.ExpiresAt = time.Now().Add(m.ttl)
		}
		return nil
	})
}

// Destroy removes the session record. It is synchronous and idempotent:
// once it returns nil the session is gone, and destroying an already
// absent session succeeds.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// Current returns the session's identity attributes, or nil for an
// anonymous, expired or unknown session.
func (m *Manager) Current(ctx context.Context, id string) *directory.Identity {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil
	}
	return s.User
}
