package refresh

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no live record matches.
var ErrNotFound = errors.New("refresh record not found")

// ErrUnavailable wraps store connectivity failures. Callers map it to a
// generic server error; this package never retries.
var ErrUnavailable = errors.New("refresh store unavailable")

// Record is the persisted source of truth for refresh-token validity. A
// signed token whose record is gone has been revoked.
type Record struct {
	Token     string
	UserID    string
	ExpiresAt int64 // unix seconds
}

// Expired reports whether the record's stored expiry is at or before now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.Unix()
}

// Store persists at most one refresh-token record per user.
type Store interface {
	// Put atomically replaces any existing record for userID with a new one.
	Put(ctx context.Context, userID, token string, expiresAt time.Time) error

	// FindByUser returns the live record for userID or ErrNotFound.
	FindByUser(ctx context.Context, userID string) (*Record, error)

	// FindByToken returns the live record matching the literal token string
	// or ErrNotFound. The token is untrusted input here; implementations
	// must verify the stored record actually carries this token.
	FindByToken(ctx context.Context, tokenStr string) (*Record, error)

	// DeleteByUser removes the user's record. Deleting a missing record is
	// not an error.
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteByToken removes the record carrying the literal token string.
	// Idempotent.
	DeleteByToken(ctx context.Context, tokenStr string) error
}
