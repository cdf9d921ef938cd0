package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid is returned when a token fails signature, issuer, or
	// structural validation.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a token is well-formed and correctly
	// signed but past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 24 * time.Hour
	maxLeeway         = 2 * time.Minute
)

// Config carries the signing material and lifetimes for both token classes.
// The two secrets must differ: compromise of one class must not allow
// forging the other.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// Leeway adds clock-skew tolerance during verification. The default is
	// zero; any positive value is a deliberate deviation from strict
	// wall-clock comparison and is capped at two minutes.
	Leeway time.Duration

	// Now overrides the time source. Nil means time.Now.
	Now func() time.Time
}

// Claims is the decoded payload shared by both token classes: a subject
// (user id), a username, and the registered timestamp claims.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager issues and verifies access and refresh tokens. A Manager is
// immutable after construction and safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// IssueAccess mints a signed access token for subject/username with the
// configured access TTL.
func (m *Manager) IssueAccess(subject, username string) (string, error) {
	return m.issue(subject, username, m.config.AccessTTL, m.config.AccessSecret)
}

// IssueRefresh mints a signed refresh token for subject/username with the
// configured refresh TTL. Callers are responsible for persisting the record
// that makes it honorable.
func (m *Manager) IssueRefresh(subject, username string) (string, error) {
	return m.issue(subject, username, m.config.RefreshTTL, m.config.RefreshSecret)
}

func (m *Manager) issue(subject, username string, ttl time.Duration, secret []byte) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}

	now := m.config.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseAccess verifies an access token against the access secret. With
// allowExpired true, an expired-but-correctly-signed token still yields its
// claims; every other failure is terminal.
func (m *Manager) ParseAccess(tokenStr string, allowExpired bool) (*Claims, error) {
	return m.parse(tokenStr, m.config.AccessSecret, allowExpired)
}

// ParseRefresh verifies a refresh token against the refresh secret,
// enforcing expiry.
func (m *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, m.config.RefreshSecret, false)
}

func (m *Manager) parse(tokenStr string, secret []byte, allowExpired bool) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			if allowExpired {
				// Signature and structure checked out; only exp failed.
				if claims, ok := parsed.Claims.(*Claims); ok {
					return claims, nil
				}
			}
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, jwt.ErrTokenInvalidClaims)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}

// IsExpired reports whether err classifies as an expiry failure rather than
// a signature or structural one.
func IsExpired(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}
