package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 5, cfg.OTP.MaxAttempts)
	assert.Equal(t, "log", cfg.OTP.Sender)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.Catalog.Path)
	assert.NotEmpty(t, cfg.Database.Path)

	assert.ErrorIs(t, cfg.ValidateServe(), ErrInvalid, "serve needs admin credentials")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: "127.0.0.1:9000"
database:
  path: /tmp/cars.db
otp:
  ttl: 5m
  max_attempts: 3
admin:
  username: root
  password_hash: "$2a$10$abcdefghijklmnopqrstuv"
auth:
  jwt_secret: "0123456789abcdef0123"
  token_ttl: 1h
`), 0o600))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, "/tmp/cars.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
	assert.Equal(t, "root", cfg.Admin.Username)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.NoError(t, cfg.ValidateServe())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CARZONE_SERVER_ADDRESS", ":7070")
	t.Setenv("CARZONE_LOGGING_FORMAT", "json")
	t.Setenv("CARZONE_SESSION_TTL", "45m")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"log level", "logging.level", "verbose"},
		{"log format", "logging.format", "xml"},
		{"empty database", "database.path", ""},
		{"unknown sender", "otp.sender", "pigeon"},
		{"smtp without host", "otp.sender", "smtp"},
		{"zero otp ttl", "otp.ttl", "0s"},
		{"zero attempts", "otp.max_attempts", 0},
		{"zero session ttl", "session.ttl", "0s"},
		{"zero token ttl", "auth.token_ttl", "0s"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := newViper()
			v.Set(tc.key, tc.val)
			_, err := Load(v)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	t.Run("smtp configured", func(t *testing.T) {
		v := newViper()
		v.Set("otp.sender", "smtp")
		v.Set("smtp.host", "mail.example.com")
		v.Set("smtp.from", "noreply@example.com")
		_, err := Load(v)
		assert.NoError(t, err)
	})
}

func TestValidateServe(t *testing.T) {
	base := Config{
		Server: Server{Address: ":8080", MaxUploadBytes: 1 << 20},
		Admin:  Admin{Username: "admin", PasswordHash: "hash"},
		Auth:   Auth{JWTSecret: "0123456789abcdef"},
	}
	require.NoError(t, base.ValidateServe())

	short := base
	short.Auth.JWTSecret = "short"
	assert.ErrorIs(t, short.ValidateServe(), ErrInvalid)

	noAddr := base
	noAddr.Server.Address = ""
	assert.ErrorIs(t, noAddr.ValidateServe(), ErrInvalid)
}
