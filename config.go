package libauth

import (
	"errors"
	"time"
)

// Config is the full engine configuration. Instances are copied at Build
// time and treated as immutable afterwards.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token issuance. Secret is the process-wide HS256
// signing key; it is loaded once at startup and never rotated mid-process.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secret     []byte
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis-backed revocation and refresh-pointer
// store. OpTimeout bounds every individual store round trip; on expiry the
// caller sees [ErrStoreUnavailable] rather than a hang.
type SessionConfig struct {
	RedisPrefix string
	OpTimeout   time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig carries the security policy switches.
//
// RevocationFailOpen decides what a revocation check does when the store is
// unreachable: false (the default) fails closed and rejects the token with
// [ErrStoreUnavailable]; true fails open and treats the token as not
// revoked, trading strict revocation for availability. The choice is
// deliberate configuration, never an implicit default of the store layer.
type SecurityConfig struct {
	RevocationFailOpen   bool
	RequireSecureCookies bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the buffered audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

const minSecretBytes = 32

// DefaultConfig returns the baseline configuration: minutes-scale access
// tokens, days-scale refresh tokens, fail-closed revocation checks. The
// signing key has no default and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "libauth",
			Leeway:     30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "auth",
			OpTimeout:   2 * time.Second,
		},
		Security: SecurityConfig{
			RevocationFailOpen:   false,
			RequireSecureCookies: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for internally consistent, usable
// values. Build calls it; callers constructing a Config by hand may call it
// early to fail fast.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < minSecretBytes {
		return errors.New("jwt secret must be at least 256 bits")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("access TTL must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("refresh TTL must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("refresh TTL must not be shorter than access TTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("invalid leeway configuration")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix required")
	}
	if c.Session.OpTimeout <= 0 {
		return errors.New("session op timeout must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.Secret = cloneBytes(c.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
