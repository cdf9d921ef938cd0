package flows

import (
	"context"
	"time"
)

// AuthenticateFailureKind classifies why RunAuthenticate rejected a request.
type AuthenticateFailureKind int

const (
	// AuthFailureNone means the request was accepted.
	AuthFailureNone AuthenticateFailureKind = iota

	// AuthFailureMissingCredentials means at least one of the two tokens
	// was absent from the request.
	AuthFailureMissingCredentials

	// AuthFailureRefreshInvalid means the refresh token failed signature
	// or claims verification.
	AuthFailureRefreshInvalid

	// AuthFailureRefreshRevoked means the refresh token verified but no
	// live stored record matches it (logged out, rotated away, or the
	// record belongs to a different user).
	AuthFailureRefreshRevoked

	// AuthFailureAccessInvalid means the access token is malformed or
	// carries a bad signature. Expiry alone is not this failure.
	AuthFailureAccessInvalid

	// AuthFailureStore means the refresh store could not be consulted.
	AuthFailureStore

	// AuthFailureRenew means minting the replacement access token failed.
	AuthFailureRenew
)

// RefreshRecord is a stored refresh token as the flows see it.
type RefreshRecord struct {
	Token     string
	UserID    string
	ExpiresAt int64
}

// AuthenticateResult reports the outcome of one authentication attempt.
type AuthenticateResult struct {
	Failure AuthenticateFailureKind
	Err     error

	User User

	// RenewedAccessToken is non-empty when the access token had expired
	// and a replacement was minted. The refresh token is never rotated
	// here; only explicit issuance rotates it.
	RenewedAccessToken string
}

// Accepted reports whether the request authenticated successfully.
func (r AuthenticateResult) Accepted() bool { return r.Failure == AuthFailureNone }

// Renewed reports whether a replacement access token was minted.
func (r AuthenticateResult) Renewed() bool { return r.RenewedAccessToken != "" }

// AuthenticateDeps carries everything RunAuthenticate needs.
type AuthenticateDeps struct {
	// ParseAccess verifies the access token. With allowExpired set the
	// claims of an expired-but-otherwise-valid token are still returned.
	ParseAccess  func(tok string, allowExpired bool) (AccessClaims, error)
	ParseRefresh func(tok string) (AccessClaims, error)

	// IsExpired reports whether a ParseAccess error is expiry and nothing
	// else.
	IsExpired func(error) bool

	FindRefresh func(ctx context.Context, token string) (RefreshRecord, error)
	IsNotFound  func(error) bool

	IssueAccess func(subject, username string) (string, error)
	Now         func() time.Time
}

// RunAuthenticate decides whether a request carrying an access token and a
// refresh token is authenticated, renewing the access token when it has
// expired but the refresh token is still live and persisted.
//
// The decision order is fixed: presence, refresh verification, persistence,
// access verification, renewal. A request is never renewed unless its
// refresh token both verifies and matches the stored record for its user.
func RunAuthenticate(ctx context.Context, accessToken, refreshToken string, deps AuthenticateDeps) AuthenticateResult {
	deps.Now = ensureNow(deps.Now)

	if accessToken == "" || refreshToken == "" {
		return AuthenticateResult{Failure: AuthFailureMissingCredentials}
	}

	refreshClaims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return AuthenticateResult{Failure: AuthFailureRefreshInvalid, Err: err}
	}

	rec, err := deps.FindRefresh(ctx, refreshToken)
	switch {
	case err == nil:
	case deps.IsNotFound(err):
		return AuthenticateResult{Failure: AuthFailureRefreshRevoked, Err: err}
	default:
		return AuthenticateResult{Failure: AuthFailureStore, Err: err}
	}

	// A stored record that names a different user, or a token that no
	// longer matches the stored one, is treated exactly like a revoked
	// session.
	if rec.UserID != refreshClaims.Subject || rec.Token != refreshToken {
		return AuthenticateResult{Failure: AuthFailureRefreshRevoked}
	}
	if rec.ExpiresAt <= deps.Now().Unix() {
		return AuthenticateResult{Failure: AuthFailureRefreshRevoked}
	}

	accessClaims, err := deps.ParseAccess(accessToken, true)
	if err != nil {
		return AuthenticateResult{Failure: AuthFailureAccessInvalid, Err: err}
	}

	_, strictErr := deps.ParseAccess(accessToken, false)
	switch {
	case strictErr == nil:
		return AuthenticateResult{
			User: User{ID: accessClaims.Subject, Username: accessClaims.Username},
		}
	case deps.IsExpired(strictErr):
		// Expired access with a live refresh token: mint a replacement
		// access token from the refresh claims. The stored refresh
		// record is left untouched.
		renewed, mintErr := deps.IssueAccess(refreshClaims.Subject, refreshClaims.Username)
		if mintErr != nil {
			return AuthenticateResult{Failure: AuthFailureRenew, Err: mintErr}
		}
		return AuthenticateResult{
			User:               User{ID: refreshClaims.Subject, Username: refreshClaims.Username},
			RenewedAccessToken: renewed,
		}
	default:
		return AuthenticateResult{Failure: AuthFailureAccessInvalid, Err: strictErr}
	}
}
