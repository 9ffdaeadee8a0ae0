package libauth

import (
	"errors"

	"github.com/cataloghq/libauth/jwt"
	"github.com/cataloghq/libauth/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until the engine methods are called.
type Builder struct {
	config Config

	redis        *redis.Client
	userProvider UserProvider
	auditSink    AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig]. The signing key and
// the Redis client still have to be supplied.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSigningKey sets the process-wide HS256 signing key without replacing
// the rest of the configuration.
func (b *Builder) WithSigningKey(key []byte) *Builder {
	b.config.JWT.Secret = cloneBytes(key)
	return b
}

// WithRedis sets the Redis client backing the revocation store and the
// refresh pointers. Timeouts and retry policy are the client's; the store
// adds only a per-operation deadline.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the credential-lookup collaborator.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the audit destination. Only consulted when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and dependencies and returns a ready
// Engine. A builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Secret:     cloneBytes(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		jwtManager: jm,
		store:      session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.OpTimeout),
		verifier:   &credentialVerifier{provider: b.userProvider},
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
	}

	b.built = true
	return engine, nil
}
