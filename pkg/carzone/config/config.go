// Package config turns viper settings into a typed, validated configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. CARZONE_SERVER_ADDRESS.
const EnvPrefix = "CARZONE"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Server defines the HTTP listener settings
type Server struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// Database defines where the SQLite file lives
type Database struct {
	Path string `mapstructure:"path"`
}

// Catalog defines an optional catalog file overriding the bundled one
type Catalog struct {
	// Path to a catalog YAML file. Empty uses the built-in catalog.
	Path string `mapstructure:"path"`
}

// Logging defines the slog level and output format
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Admin defines the moderator credentials
type Admin struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// Auth defines how admin tokens are signed
type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// OTP defines how one-time codes expire and are delivered
type OTP struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	// Sender is "log" or "smtp".
	Sender string `mapstructure:"sender"`
}

// SMTP defines the mail relay used by the smtp sender
type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Session defines visitor session lifetime and sweeping
type Session struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Config is the full application configuration.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Catalog  Catalog  `mapstructure:"catalog"`
	Logging  Logging  `mapstructure:"logging"`
	Admin    Admin    `mapstructure:"admin"`
	Auth     Auth     `mapstructure:"auth"`
	OTP      OTP      `mapstructure:"otp"`
	SMTP     SMTP     `mapstructure:"smtp"`
	Session  Session  `mapstructure:"session"`
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(32<<20))
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("catalog.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("otp.ttl", 10*time.Minute)
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.sender", "log")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
}

// BindEnv makes CARZONE_SECTION_KEY override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// DefaultDatabasePath returns ~/.local/share/carzone/carzone.db, or a file in
// the working directory when no home directory is available.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "carzone.db"
	}
	return filepath.Join(home, ".local", "share", "carzone", "carzone.db")
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings every command depends on.
func (c Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, c.Logging.Format)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty", ErrInvalid)
	}
	switch c.OTP.Sender {
	case "log":
	case "smtp":
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return fmt.Errorf("%w: smtp.host and smtp.from are required for the smtp sender", ErrInvalid)
		}
		if c.SMTP.Port <= 0 {
			return fmt.Errorf("%w: smtp.port %d", ErrInvalid, c.SMTP.Port)
		}
	default:
		return fmt.Errorf("%w: otp.sender %q", ErrInvalid, c.OTP.Sender)
	}
	if c.OTP.TTL <= 0 || c.OTP.MaxAttempts <= 0 {
		return fmt.Errorf("%w: otp.ttl and otp.max_attempts must be positive", ErrInvalid)
	}
	if c.Session.TTL <= 0 || c.Session.SweepInterval <= 0 {
		return fmt.Errorf("%w: session.ttl and session.sweep_interval must be positive", ErrInvalid)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: auth.token_ttl must be positive", ErrInvalid)
	}
	return nil
}

// ValidateServe adds the checks only the HTTP server needs.
func (c Config) ValidateServe() error {
	if c.Server.Address == "" {
		return fmt.Errorf("%w: server.address is empty", ErrInvalid)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: server.max_upload_bytes must be positive", ErrInvalid)
	}
	if c.Admin.Username == "" || c.Admin.PasswordHash == "" {
		return fmt.Errorf("%w: admin.username and admin.password_hash are required (see `carzone admin hash-password`)", ErrInvalid)
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("%w: auth.jwt_secret must be at least 16 characters", ErrInvalid)
	}
	return nil
}
