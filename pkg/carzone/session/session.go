// Package session tracks anonymous visitor sessions and the email each one
// has verified.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HeaderName carries the session id on requests.
const HeaderName = "X-Session-ID"

// Errors returned by the store.
var (
	ErrNotFound = errors.New("session: not found")
	ErrNoEmail  = errors.New("session: no email to verify")

	// ErrEmailChanged means the session moved to another email after the code
	// was checked.
	ErrEmailChanged = errors.New("session: email changed during verification")
)

// Session is a snapshot of one visitor's state.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifiedEmail returns the email the session proved ownership of, or "".
func (s Session) VerifiedEmail() string {
	if !s.Verified {
		return ""
	}
	return s.Email
}

// Store is an in-memory session table with sliding expiry.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a store whose sessions live for ttl after last use.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new session.
func (s *Store) Create() Session {
	now := s.now()
	sess := &Session{ID: uuid.NewString(), CreatedAt: now, ExpiresAt: now.Add(s.ttl)}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return *sess
}

// Get returns the session and extends its lifetime.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	sess.ExpiresAt = s.now().Add(s.ttl)
	return *sess, nil
}

// SetEmail attaches the email a code was sent to. Changing the email drops
// any earlier verification.
func (s *Store) SetEmail(id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	if sess.Email != email {
		sess.Email = email
		sess.Verified = false
	}
	sess.ExpiresAt = s.now().Add(s.ttl)
	return nil
}

// MarkVerified records that the session proved ownership of email. It fails
// unless email is still the one bound to the session.
func (s *Store) MarkVerified(id, email string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	if sess.Email == "" || email == "" {
		return Session{}, ErrNoEmail
	}
	if sess.Email != email {
		return Session{}, ErrEmailChanged
	}
	sess.Verified = true
	sess.ExpiresAt = s.now().Add(s.ttl)
	return *sess, nil
}

// ClearVerification drops the verified flag, for example after a completed
// submission. The email is kept so the seller can ask for a new code.
func (s *Store) ClearVerification(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.Verified = false
	return nil
}

// Delete ends a session. Unknown ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Sweep removes expired sessions and reports how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live and not yet swept sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) lookup(id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return sess, nil
}
