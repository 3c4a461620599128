// Package otp issues and verifies one-time email codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Errors returned by the service.
var (
	ErrInvalidEmail    = errors.New("otp: invalid email address")
	ErrNoCode          = errors.New("otp: no code was sent to this address")
	ErrCodeExpired     = errors.New("otp: code expired")
	ErrCodeMismatch    = errors.New("otp: code does not match")
	ErrTooManyAttempts = errors.New("otp: too many attempts")
)

const codeDigits = 6

// Sender delivers a code to an address.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

type entry struct {
	hash      []byte
	expiresAt time.Time
	attempts  int
}

// Service keeps outstanding codes in memory. Codes are stored as bcrypt hashes.
type Service struct {
	sender      Sender
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	compare     func(hash, code []byte) error

	mu    sync.Mutex
	codes map[string]*entry
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService returns a service that expires codes after ttl and invalidates
// them after maxAttempts wrong guesses.
func NewService(sender Sender, ttl time.Duration, maxAttempts int, opts ...Option) *Service {
	s := &Service{
		sender:      sender,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
		compare:     bcrypt.CompareHashAndPassword,
		codes:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail validates an address and returns its canonical key.
func NormalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return strings.ToLower(addr.Address), nil
}

// SendCode issues a fresh code for email, replacing any outstanding one.
func (s *Service) SendCode(ctx context.Context, email string) error {
	key, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("otp: generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("otp: hash code: %w", err)
	}

	if err := s.sender.Send(ctx, key, code); err != nil {
		return fmt.Errorf("otp: send code: %w", err)
	}

	s.mu.Lock()
	s.codes[key] = &entry{hash: hash, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// VerifyCode checks code against the outstanding code for email. A matching
// code is consumed.
func (s *Service) VerifyCode(_ context.Context, email, code string) error {
	key, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	s.mu.Lock()
	e, ok := s.codes[key]
	if !ok {
		s.mu.Unlock()
		return ErrNoCode
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.codes, key)
		s.mu.Unlock()
		return ErrCodeExpired
	}
	hash := e.hash
	s.mu.Unlock()

	// Compare unlocked. A resend or a concurrent verify may replace or consume
	// the entry meanwhile.
	mismatch := s.compare(hash, []byte(strings.TrimSpace(code))) != nil

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.codes[key]
	if !ok {
		return ErrNoCode
	}
	if current != e {
		return ErrCodeMismatch
	}
	if mismatch {
		e.attempts++
		if e.attempts >= s.maxAttempts {
			delete(s.codes, key)
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}
	delete(s.codes, key)
	return nil
}

// Sweep drops expired codes and reports how many were removed.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.codes {
		if !now.Before(e.expiresAt) {
			delete(s.codes, key)
			removed++
		}
	}
	return removed
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
