// Package jwt implements the token codec: issuance and validation of
// signed, time-bounded access and refresh tokens. The codec is pure: it
// never consults the revocation store, so it can be used for structural
// checks anywhere. Revocation is layered on top by the engine.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes the two token kinds. Both use the same signing
// scheme and the same verification path; only the lifetime and the typ
// claim differ.
type TokenType string

const (
	// TypeAccess is the short-lived per-request credential.
	TypeAccess TokenType = "access"
	// TypeRefresh is the long-lived rotation credential.
	TypeRefresh TokenType = "refresh"
)

// Codec-level validation errors. The engine maps these onto its public
// taxonomy.
var (
	ErrSignature = errors.New("token signature invalid")
	ErrMalformed = errors.New("token malformed")
	ErrExpired   = errors.New("token expired")
)

// Config configures a Manager. Secret is the HS256 key shared by both
// token kinds.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secret     []byte
	Issuer     string
	Leeway     time.Duration
}

// Claims is the payload carried by both token kinds: subject, role, issue
// and expiry instants, a unique token id used as the revocation key, and
// the token type. Claims are immutable once issued; only external validity
// state (expired, revoked) evolves afterwards.
type Claims struct {
	Role      string    `json:"role"`
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Manager issues and validates tokens. It holds no mutable state and is
// safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a Manager. The secret
// must carry at least 256 bits; shorter keys are rejected outright rather
// than degraded.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("hs256 requires a key of at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Issue creates a signed token of the given type for subject/role and
// returns it together with its claims, so callers can record the token id
// without re-parsing. The lifetime comes from the configured TTL for that
// type; the token id is a fresh UUID.
func (m *Manager) Issue(subject, role string, typ TokenType) (string, *Claims, error) {
	ttl := m.config.AccessTTL
	if typ == TypeRefresh {
		ttl = m.config.RefreshTTL
	}
	now := time.Now()

	claims := &Claims{
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.config.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// RefreshTTL exposes the configured refresh lifetime; the engine uses it as
// the refresh-pointer TTL.
func (m *Manager) RefreshTTL() time.Duration {
	return m.config.RefreshTTL
}

// Parse verifies the signature first, then the registered time claims, and
// returns the decoded claims. Failures map onto ErrSignature, ErrExpired,
// or ErrMalformed; nothing in the payload is trusted before the signature
// verifies.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrMalformed
	}
	switch claims.TokenType {
	case TypeAccess, TypeRefresh:
	default:
		return nil, ErrMalformed
	}
	return claims, nil
}

// Remaining reports how much of the token's lifetime is left. Zero or
// negative means the token is already past expiry and there is nothing left
// to revoke.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		// Structural problems, wrong algorithm, bad issuer, future iat:
		// all collapse to malformed for the caller.
		return ErrMalformed
	}
}
