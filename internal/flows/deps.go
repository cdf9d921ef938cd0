package flows

import (
	"context"
	"time"
)

// User is the caller-visible identity a successful flow returns.
type User struct {
	ID       string
	Username string
}

// UserRecord is a stored user as the user store returns it to the flows.
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PasswordHash string
}

// CreateUserInput holds the fields RunRegister passes to the user store.
type CreateUserInput struct {
	Username     string
	Email        string
	Name         string
	PasswordHash string
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AccessClaims is the subset of verified token claims the flows consume.
type AccessClaims struct {
	Subject  string
	Username string
}

// AuditEmitter emits one audit event. Implementations must be non-blocking.
// The meta callback is only invoked when auditing is enabled.
type AuditEmitter func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)

// MetricFunc increments one counter by metric id.
type MetricFunc func(id int)

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {
}

func noopMetric(int) {}

func ensureAudit(fn AuditEmitter) AuditEmitter {
	if fn == nil {
		return noopAudit
	}
	return fn
}

func ensureMetric(fn MetricFunc) MetricFunc {
	if fn == nil {
		return noopMetric
	}
	return fn
}

func ensureNow(fn func() time.Time) func() time.Time {
	if fn == nil {
		return time.Now
	}
	return fn
}
