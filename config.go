package tokengate

import (
	"bytes"
	"errors"
	"net/http"
	"time"
)

// Config carries every Engine setting. Configure it once before Build;
// the Engine treats it as immutable afterwards.
type Config struct {
	JWT     JWTConfig
	Store   StoreConfig
	Cookie  CookieConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the token codec settings. Access and refresh tokens are
// signed with HS256 using two distinct secrets so that one token kind can
// never be verified against the other's key.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig holds refresh store settings.
type StoreConfig struct {
	// RedisPrefix namespaces every key the Redis-backed store writes.
	RedisPrefix string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig shapes the refresh token cookie the Engine builds for HTTP
// hosts. The cookie lifetime always follows the refresh token TTL.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking callers when the
	// buffer is full.
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

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
			Issuer:     "tokengate",
		},
		Store: StoreConfig{
			RedisPrefix: "tokengate",
		},
		Cookie: CookieConfig{
			Name:     "refreshToken",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = append([]byte(nil), cfg.JWT.AccessSecret...)
	out.JWT.RefreshSecret = append([]byte(nil), cfg.JWT.RefreshSecret...)
	return out
}

// Validate checks the parts of the configuration the Engine cannot default.
func (c Config) Validate() error {
	if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 {
		return errors.New("config: access and refresh secrets are required")
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("config: access and refresh secrets must differ")
	}
	if c.JWT.AccessTTL < 0 || c.JWT.RefreshTTL < 0 {
		return errors.New("config: token lifetimes must not be negative")
	}
	if c.JWT.AccessTTL > 0 && c.JWT.RefreshTTL > 0 && c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("config: access lifetime must be shorter than refresh lifetime")
	}
	if c.Cookie.Name == "" {
		return errors.New("config: cookie name is required")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("config: audit buffer size must be positive")
	}
	return nil
}
