package tokengate

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tokengate/internal/audit"
	"tokengate/internal/metrics"
	"tokengate/password"
	"tokengate/refresh"
	"tokengate/token"
)

// Builder assembles an Engine. Configure it, then call Build exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	refreshStore refresh.Store
	userStore    UserStore
	auditSink    AuditSink

	built bool
}

// New returns a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Zero-valued TTLs and cookie
// fields are filled from defaults at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecrets sets the two signing secrets without replacing the rest of
// the configuration.
func (b *Builder) WithSecrets(accessSecret, refreshSecret []byte) *Builder {
	b.config.JWT.AccessSecret = append([]byte(nil), accessSecret...)
	b.config.JWT.RefreshSecret = append([]byte(nil), refreshSecret...)
	return b
}

// WithRedis backs the refresh store with the given Redis client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRefreshStore supplies a refresh store directly, overriding WithRedis.
// Use this for the Postgres-backed store or a custom implementation.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.refreshStore = store
	return b
}

// WithUserStore supplies the host application's user backend. Register and
// Login are unavailable without it; Authenticate and Logout still work.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithAuditSink enables auditing and delivers events to sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires every subsystem, and returns
// the Engine. A Builder can only be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	def := defaultConfig()
	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = def.JWT.AccessTTL
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = def.JWT.RefreshTTL
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = def.JWT.Issuer
	}
	if cfg.Store.RedisPrefix == "" {
		cfg.Store.RedisPrefix = def.Store.RedisPrefix
	}
	if cfg.Cookie.Name == "" {
		cfg.Cookie = def.Cookie
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
		cfg.Audit.DropIfFull = def.Audit.DropIfFull
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	store := b.refreshStore
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("a refresh store is required: call WithRedis or WithRefreshStore")
		}
		store = refresh.NewRedisStore(b.redis, cfg.Store.RedisPrefix)
	}

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	sink := b.auditSink
	if sink == nil {
		sink = audit.NoOpSink{}
	}

	engine := &Engine{
		config: cfg,
		tokens: tokens,
		store:  store,
		users:  b.userStore,
		hasher: hasher,
		metrics: metrics.New(metrics.Config{
			Enabled: cfg.Metrics.Enabled,
		}),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink),
	}

	b.built = true
	return engine, nil
}
