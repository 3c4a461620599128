package otp

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (c *captureSender) Send(_ context.Context, email, code string) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codes == nil {
		c.codes = make(map[string]string)
	}
	c.codes[email] = code
	return nil
}

func (c *captureSender) code(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[email]
}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func newTestService(t *testing.T) (*Service, *captureSender, *fakeClock) {
	t.Helper()
	sender := &captureSender{}
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(sender, 10*time.Minute, 3, WithClock(clock.now)), sender, clock
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestSendAndVerify(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newTestService(t)

	require.NoError(t, svc.SendCode(ctx, "  Seller@Example.com "))
	code := sender.code("seller@example.com")
	require.Len(t, code, codeDigits)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code %q must be numeric", code)
	}

	assert.NoError(t, svc.VerifyCode(ctx, "SELLER@example.com", code))
	assert.ErrorIs(t, svc.VerifyCode(ctx, "seller@example.com", code), ErrNoCode, "codes are single use")
}

func TestInvalidEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	for _, email := range []string{"", "not-an-email", "Bob <bob@example.com>"} {
		assert.ErrorIs(t, svc.SendCode(context.Background(), email), ErrInvalidEmail, email)
	}
	assert.ErrorIs(t, svc.VerifyCode(context.Background(), "nope", "123456"), ErrInvalidEmail)
}

func TestVerifyWithoutSend(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.ErrorIs(t, svc.VerifyCode(context.Background(), "a@example.com", "123456"), ErrNoCode)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	svc, sender, clock := newTestService(t)

	require.NoError(t, svc.SendCode(ctx, "a@example.com"))
	clock.t = clock.t.Add(10 * time.Minute)

	assert.ErrorIs(t, svc.VerifyCode(ctx, "a@example.com", sender.code("a@example.com")), ErrCodeExpired)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "a@example.com", sender.code("a@example.com")), ErrNoCode)
}

func TestAttemptLimit(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newTestService(t)

	require.NoError(t, svc.SendCode(ctx, "a@example.com"))
	code := sender.code("a@example.com")
	bad := wrongCode(code)

	assert.ErrorIs(t, svc.VerifyCode(ctx, "a@example.com", bad), ErrCodeMismatch)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "a@example.com", bad), ErrCodeMismatch)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "a@example.com", bad), ErrTooManyAttempts)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "a@example.com", code), ErrNoCode, "exhausted codes are dropped")
}

func TestResendReplacesCode(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newTestService(t)

	require.NoError(t, svc.SendCode(ctx, "a@example.com"))
	first := sender.code("a@example.com")
	assert.ErrorIs(t, svc.VerifyCode(ctx, "a@example.com", wrongCode(first)), ErrCodeMismatch)

	require.NoError(t, svc.SendCode(ctx, "a@example.com"))
	second := sender.code("a@example.com")
	if first != second {
		assert.ErrorIs(t, svc.VerifyCode(ctx, "a@example.com", first), ErrCodeMismatch)
	}
	assert.NoError(t, svc.VerifyCode(ctx, "a@example.com", second))
}

func TestVerifyComparesOutsideLock(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SendCode(ctx, "slow@example.com"))
	code := sender.code("slow@example.com")

	entered := make(chan struct{})
	release := make(chan struct{})
	svc.compare = func(hash, code []byte) error {
		close(entered)
		<-release
		return bcrypt.CompareHashAndPassword(hash, code)
	}

	result := make(chan error, 1)
	go func() { result <- svc.VerifyCode(ctx, "slow@example.com", code) }()
	<-entered

	swept := make(chan int, 1)
	go func() { swept <- svc.Sweep() }()
	select {
	case n := <-swept:
		assert.Zero(t, n)
	case <-time.After(2 * time.Second):
		t.Fatal("service lock held during code comparison")
	}

	close(release)
	assert.NoError(t, <-result)
}

func TestResendDuringVerify(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SendCode(ctx, "race@example.com"))
	first := sender.code("race@example.com")

	svc.compare = func(hash, code []byte) error {
		svc.compare = bcrypt.CompareHashAndPassword
		require.NoError(t, svc.SendCode(ctx, "race@example.com"))
		return bcrypt.CompareHashAndPassword(hash, code)
	}
	assert.ErrorIs(t, svc.VerifyCode(ctx, "race@example.com", first), ErrCodeMismatch)

	second := sender.code("race@example.com")
	assert.NoError(t, svc.VerifyCode(ctx, "race@example.com", second))
}

func TestSenderFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("relay down")
	svc := NewService(&captureSender{err: boom}, time.Minute, 3)

	assert.ErrorIs(t, svc.SendCode(ctx, "a@example.com"), boom)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "a@example.com", "123456"), ErrNoCode)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)

	require.NoError(t, svc.SendCode(ctx, "old@example.com"))
	clock.t = clock.t.Add(6 * time.Minute)
	require.NoError(t, svc.SendCode(ctx, "new@example.com"))
	clock.t = clock.t.Add(5 * time.Minute)

	assert.Equal(t, 1, svc.Sweep())
	assert.Equal(t, 0, svc.Sweep())
	assert.ErrorIs(t, svc.VerifyCode(ctx, "old@example.com", "123456"), ErrNoCode)
}

func TestSMTPSender(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	sender := NewSMTPSender(SMTPConfig{Host: "mail.example.com", Port: 587, Username: "u", Password: "p", From: "noreply@example.com"})
	sender.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	require.NoError(t, sender.Send(context.Background(), "buyer@example.com", "123456"))
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"buyer@example.com"}, gotTo)
	assert.True(t, strings.Contains(gotMsg, "123456"))
	assert.True(t, strings.HasPrefix(gotMsg, "From: noreply@example.com\r\n"))
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.Send(context.Background(), "a@example.com", "123456"))
}
