package tokengate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tokengate/internal/audit"
	"tokengate/internal/flows"
	"tokengate/internal/metrics"
	"tokengate/password"
	"tokengate/refresh"
	"tokengate/token"
)

// Engine is the credential issuance and session renewal core. It is safe
// for concurrent use; all configuration happens through the Builder.
type Engine struct {
	config  Config
	tokens  *token.Manager
	store   refresh.Store
	users   UserStore
	hasher  *password.Hasher
	audit   *audit.Dispatcher
	metrics *metrics.Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed under load.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all Engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id int) {
	e.metrics.Inc(metrics.MetricID(id))
}

func (e *Engine) emitAudit(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string) {
	if e.audit == nil {
		return
	}
	ev := audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: event,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if meta != nil {
		ev.Metadata = meta()
	}
	e.audit.Emit(ctx, ev)
}

func (e *Engine) issueDeps() flows.IssueDeps {
	return flows.IssueDeps{
		IssueAccess:  e.tokens.IssueAccess,
		IssueRefresh: e.tokens.IssueRefresh,
		RefreshTTL:   e.tokens.RefreshTTL(),
		PutRefresh:   e.store.Put,
		MetricInc:    e.metricInc,
		EmitAudit:    e.emitAudit,
		Metrics: flows.IssueMetrics{
			PairIssued:   int(metrics.MetricPairIssued),
			IssueFailure: int(metrics.MetricIssueFailure),
			StoreError:   int(metrics.MetricStoreError),
		},
		Events: flows.IssueEvents{
			PairIssued:   EventPairIssued,
			IssueFailure: EventIssueFailure,
		},
		Errors: flows.IssueErrors{
			EngineNotReady:   ErrEngineNotReady,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
}

func (e *Engine) issuePair(ctx context.Context, userID, username string) (*flows.TokenPair, error) {
	return flows.RunIssuePair(ctx, userID, username, e.issueDeps())
}

func isUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// Register creates a user through the configured UserStore and issues
// their first token pair. Username and email must both be unclaimed.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (User, *TokenPair, error) {
	if e == nil || e.users == nil {
		return User{}, nil, ErrEngineNotReady
	}

	res, err := flows.RunRegister(ctx, flows.RegisterRequest{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, flows.RegisterDeps{
		GetByIdentifier: func(ctx context.Context, identifier string) (flows.UserRecord, error) {
			rec, err := e.users.GetByIdentifier(ctx, identifier)
			return userRecordToFlows(rec), err
		},
		IsUserNotFound: isUserNotFound,
		CreateUser: func(ctx context.Context, in flows.CreateUserInput) (flows.UserRecord, error) {
			rec, err := e.users.Create(ctx, CreateUserInput{
				Username:     in.Username,
				Email:        in.Email,
				Name:         in.Name,
				PasswordHash: in.PasswordHash,
			})
			return userRecordToFlows(rec), err
		},
		HashPassword: e.hasher.Hash,
		IssuePair:    e.issuePair,
		MetricInc:    e.metricInc,
		EmitAudit:    e.emitAudit,
		Metrics: flows.RegisterMetrics{
			Success:   int(metrics.MetricRegisterSuccess),
			Duplicate: int(metrics.MetricRegisterDuplicate),
			Failure:   int(metrics.MetricRegisterFailure),
		},
		Events: flows.RegisterEvents{
			Success: EventRegister,
			Failure: EventRegister,
		},
		Errors: flows.RegisterErrors{
			EngineNotReady: ErrEngineNotReady,
			UsernameTaken:  ErrUsernameTaken,
			Validation:     ErrValidation,
		},
	})
	if err != nil {
		return User{}, nil, err
	}
	return User{ID: res.User.ID, Username: res.User.Username}, pairFromFlows(res.Pair), nil
}

// Login verifies the identifier/password pair and issues a fresh token
// pair, replacing any previously stored refresh token for the user.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (User, *TokenPair, error) {
	if e == nil || e.users == nil {
		return User{}, nil, ErrEngineNotReady
	}

	res, err := flows.RunLogin(ctx, identifier, pass, flows.LoginDeps{
		GetByIdentifier: func(ctx context.Context, identifier string) (flows.UserRecord, error) {
			rec, err := e.users.GetByIdentifier(ctx, identifier)
			return userRecordToFlows(rec), err
		},
		IsUserNotFound: isUserNotFound,
		VerifyPassword: e.hasher.Verify,
		IssuePair:      e.issuePair,
		MetricInc:      e.metricInc,
		EmitAudit:      e.emitAudit,
		Metrics: flows.LoginMetrics{
			Success: int(metrics.MetricLoginSuccess),
			Failure: int(metrics.MetricLoginFailure),
		},
		Events: flows.LoginEvents{
			Success: EventLogin,
			Failure: EventLogin,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
		},
	})
	if err != nil {
		return User{}, nil, err
	}
	return User{ID: res.User.ID, Username: res.User.Username}, pairFromFlows(res.Pair), nil
}

// IssueTokenPair mints and persists a token pair for an already
// authenticated user, replacing any stored refresh token.
func (e *Engine) IssueTokenPair(ctx context.Context, userID, username string) (*TokenPair, error) {
	if e == nil || e.tokens == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	pair, err := e.issuePair(ctx, userID, username)
	if err != nil {
		return nil, err
	}
	return pairFromFlows(pair), nil
}

// Authenticate decides whether a request carrying an access token and a
// refresh token is authenticated. An expired access token is renewed
// transparently when the refresh token is still live and persisted; the
// renewed token is returned in the AuthResult and the stored refresh
// token is left untouched.
//
// Errors: ErrUnauthorized when either token is missing, ErrForbidden when
// verification or revocation checks fail, ErrStoreUnavailable when the
// refresh store cannot be consulted.
func (e *Engine) Authenticate(ctx context.Context, accessToken, refreshToken string) (AuthResult, error) {
	if e == nil || e.tokens == nil || e.store == nil {
		return AuthResult{}, ErrEngineNotReady
	}

	res := flows.RunAuthenticate(ctx, accessToken, refreshToken, flows.AuthenticateDeps{
		ParseAccess: func(tok string, allowExpired bool) (flows.AccessClaims, error) {
			return claimsToFlows(e.tokens.ParseAccess(tok, allowExpired))
		},
		ParseRefresh: func(tok string) (flows.AccessClaims, error) {
			return claimsToFlows(e.tokens.ParseRefresh(tok))
		},
		IsExpired: token.IsExpired,
		FindRefresh: func(ctx context.Context, tok string) (flows.RefreshRecord, error) {
			rec, err := e.store.FindByToken(ctx, tok)
			if err != nil {
				return flows.RefreshRecord{}, err
			}
			return flows.RefreshRecord{
				Token:     rec.Token,
				UserID:    rec.UserID,
				ExpiresAt: rec.ExpiresAt,
			}, nil
		},
		IsNotFound: func(err error) bool {
			return errors.Is(err, refresh.ErrNotFound)
		},
		IssueAccess: e.tokens.IssueAccess,
	})

	switch res.Failure {
	case flows.AuthFailureNone:
	case flows.AuthFailureMissingCredentials:
		e.metrics.Inc(metrics.MetricAuthRejected)
		return AuthResult{}, ErrUnauthorized
	case flows.AuthFailureStore:
		e.metrics.Inc(metrics.MetricStoreError)
		e.emitAudit(ctx, EventAuthenticate, false, "", res.Err, nil)
		return AuthResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	case flows.AuthFailureRenew:
		e.metrics.Inc(metrics.MetricAuthRejected)
		e.emitAudit(ctx, EventAuthenticate, false, "", res.Err, nil)
		return AuthResult{}, fmt.Errorf("renew access token: %w", res.Err)
	default:
		e.metrics.Inc(metrics.MetricAuthRejected)
		e.emitAudit(ctx, EventAuthenticate, false, "", res.Err, func() map[string]string {
			return map[string]string{"reason": authFailureReason(res.Failure)}
		})
		return AuthResult{}, ErrForbidden
	}

	e.metrics.Inc(metrics.MetricAuthAccepted)
	if res.Renewed() {
		e.metrics.Inc(metrics.MetricAuthRenewed)
	}
	e.emitAudit(ctx, EventAuthenticate, true, res.User.ID, nil, nil)

	return AuthResult{
		User:               User{ID: res.User.ID, Username: res.User.Username},
		RenewedAccessToken: res.RenewedAccessToken,
	}, nil
}

// ValidateAccess verifies an access token strictly, with no renewal path.
// Expired tokens fail.
func (e *Engine) ValidateAccess(accessToken string) (User, error) {
	if e == nil || e.tokens == nil {
		return User{}, ErrEngineNotReady
	}
	claims, err := e.tokens.ParseAccess(accessToken, false)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return User{ID: claims.Subject, Username: claims.Username}, nil
}

// Logout revokes the user's stored refresh token. Logging out a user with
// no live session is a no-op.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return flows.RunLogout(ctx, userID, e.logoutDeps())
}

// LogoutToken revokes the session holding the given refresh token, for
// callers that only have the cookie value. A token that was already
// rotated away revokes nothing.
func (e *Engine) LogoutToken(ctx context.Context, refreshToken string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return flows.RunLogoutByToken(ctx, refreshToken, e.logoutDeps())
}

func (e *Engine) logoutDeps() flows.LogoutDeps {
	return flows.LogoutDeps{
		DeleteByUser:  e.store.DeleteByUser,
		DeleteByToken: e.store.DeleteByToken,
		MetricInc:     e.metricInc,
		EmitAudit:     e.emitAudit,
		Metrics: flows.LogoutMetrics{
			Logout:     int(metrics.MetricLogout),
			StoreError: int(metrics.MetricStoreError),
		},
		Events: flows.LogoutEvents{
			Logout: EventLogout,
		},
		Errors: flows.LogoutErrors{
			EngineNotReady:   ErrEngineNotReady,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
}

// RefreshCookie builds the refresh token cookie for HTTP hosts. Its
// lifetime follows the refresh token TTL.
func (e *Engine) RefreshCookie(refreshToken string) *http.Cookie {
	c := e.config.Cookie
	return &http.Cookie{
		Name:     c.Name,
		Value:    refreshToken,
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   int(e.tokens.RefreshTTL() / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// ClearRefreshCookie builds an expired cookie that removes the refresh
// token from the client.
func (e *Engine) ClearRefreshCookie() *http.Cookie {
	c := e.config.Cookie
	return &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// CookieName reports the configured refresh cookie name.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

func authFailureReason(kind flows.AuthenticateFailureKind) string {
	switch kind {
	case flows.AuthFailureRefreshInvalid:
		return "refresh_invalid"
	case flows.AuthFailureRefreshRevoked:
		return "refresh_revoked"
	case flows.AuthFailureAccessInvalid:
		return "access_invalid"
	default:
		return "rejected"
	}
}

func userRecordToFlows(rec UserRecord) flows.UserRecord {
	return flows.UserRecord{
		ID:           rec.ID,
		Username:     rec.Username,
		Email:        rec.Email,
		Name:         rec.Name,
		PasswordHash: rec.PasswordHash,
	}
}

func claimsToFlows(claims *token.Claims, err error) (flows.AccessClaims, error) {
	if err != nil {
		return flows.AccessClaims{}, err
	}
	return flows.AccessClaims{Subject: claims.Subject, Username: claims.Username}, nil
}

func pairFromFlows(pair *flows.TokenPair) *TokenPair {
	if pair == nil {
		return nil
	}
	return &TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}
