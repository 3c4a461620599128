// Package auth checks the admin credential and issues signed admin tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals a wrong username or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken signals a missing, malformed, expired or foreign token.
	ErrInvalidToken = errors.New("auth: invalid token")
)

const (
	issuer    = "carzone"
	adminRole = "admin"
)

// Claims is the payload of an admin token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service verifies the single configured admin account.
type Service struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and checking tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService returns a service for the admin identified by username and the
// bcrypt passwordHash. Tokens are signed with secret and live for ttl.
func NewService(username, passwordHash, secret string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		username:     username,
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashPassword returns the bcrypt hash to put in admin.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("auth: empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks the credentials and returns a signed token with its expiry.
func (s *Service) Login(username, password string) (string, time.Time, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, expires, nil
}

// VerifyToken validates a token and returns the admin username it was issued to.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != adminRole || claims.Subject != s.username {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: no bearer token", ErrInvalidToken)
	}
	return strings.TrimSpace(token), nil
}
