package session

import (
	"io"
	"log/slog"
	"time"
)

// DefaultTTL is the session lifetime applied on create and update. Four days
// roughly matches how long the upstream keeps a login-issued cookie set alive.
const DefaultTTL = 4 * 24 * time.Hour

// Config holds session manager configuration with environment variable support.
type Config struct {
	TTL time.Duration `env:"SESSION_TTL" envDefault:"96h"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{TTL: DefaultTTL}
}

// Option is a functional option for configuring the Manager.
type Option func(*Manager)

// WithTTL sets the session time-to-live applied by CreateOrUpdateSession.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithLogger sets the logger for store failures and best-effort operations.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
