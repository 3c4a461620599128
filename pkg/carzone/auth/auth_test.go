package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewService("admin", hash, "signing-key", time.Hour, WithClock(clock.now)), clock
}

func TestLogin(t *testing.T) {
	svc, clock := newTestService(t)

	token, expires, err := svc.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.t.Add(time.Hour), expires)

	user, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name, user, pass string
	}{
		{"wrong password", "admin", "nope"},
		{"wrong user", "root", "s3cret"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Login(tc.user, tc.pass)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestVerifyToken(t *testing.T) {
	svc, clock := newTestService(t)
	token, _, err := svc.Login("admin", "s3cret")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		saved := clock.t
		defer func() { clock.t = saved }()
		clock.t = clock.t.Add(2 * time.Hour)
		_, err := svc.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		hash, err := HashPassword("s3cret")
		require.NoError(t, err)
		other := NewService("admin", hash, "different-key", time.Hour, WithClock(clock.now))
		_, err = other.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.VerifyToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong role", func(t *testing.T) {
		claims := Claims{
			Role: "seller",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   "admin",
				ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("signing-key"))
		require.NoError(t, err)
		_, err = svc.VerifyToken(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no expiry", func(t *testing.T) {
		claims := Claims{Role: adminRole, RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "admin"}}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("signing-key"))
		require.NoError(t, err)
		_, err = svc.VerifyToken(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	for _, header := range []string{"", "Basic abc", "Bearer ", "bearer abc"} {
		_, err := BearerToken(header)
		assert.ErrorIs(t, err, ErrInvalidToken, header)
	}
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)
}
