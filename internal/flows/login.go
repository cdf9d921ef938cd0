package flows

import (
	"context"
	"fmt"
)

// LoginResult is what RunLogin returns on success.
type LoginResult struct {
	User User
	Pair *TokenPair
}

// LoginDeps carries everything RunLogin needs.
type LoginDeps struct {
	GetByIdentifier func(ctx context.Context, identifier string) (UserRecord, error)
	IsUserNotFound  func(error) bool
	VerifyPassword  func(password, hash string) (bool, error)
	IssuePair       func(ctx context.Context, userID, username string) (*TokenPair, error)

	MetricInc MetricFunc
	EmitAudit AuditEmitter
	Metrics   LoginMetrics
	Events    LoginEvents
	Errors    LoginErrors
}

// LoginMetrics holds the counter ids RunLogin increments.
type LoginMetrics struct {
	Success int
	Failure int
}

// LoginEvents holds the audit event names RunLogin emits.
type LoginEvents struct {
	Success string
	Failure string
}

// LoginErrors holds the sentinel errors RunLogin wraps.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
}

// RunLogin authenticates a user by identifier and password and issues a
// fresh token pair. An unknown identifier and a wrong password both report
// InvalidCredentials so callers cannot probe which accounts exist.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) (*LoginResult, error) {
	deps.MetricInc = ensureMetric(deps.MetricInc)
	deps.EmitAudit = ensureAudit(deps.EmitAudit)

	if deps.GetByIdentifier == nil || deps.IsUserNotFound == nil ||
		deps.VerifyPassword == nil || deps.IssuePair == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if identifier == "" || password == "" {
		deps.MetricInc(deps.Metrics.Failure)
		return nil, deps.Errors.InvalidCredentials
	}

	rec, err := deps.GetByIdentifier(ctx, identifier)
	if err != nil {
		if deps.IsUserNotFound(err) {
			deps.MetricInc(deps.Metrics.Failure)
			deps.EmitAudit(ctx, deps.Events.Failure, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
				return map[string]string{"reason": "unknown_identifier"}
			})
			return nil, deps.Errors.InvalidCredentials
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", err, nil)
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	ok, err := deps.VerifyPassword(password, rec.PasswordHash)
	password = ""
	if err != nil || !ok {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, rec.ID, deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "bad_password"}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	pair, err := deps.IssuePair(ctx, rec.ID, rec.Username)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, rec.ID, err, nil)
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, rec.ID, nil, func() map[string]string {
		return map[string]string{"username": rec.Username}
	})

	return &LoginResult{
		User: User{ID: rec.ID, Username: rec.Username},
		Pair: pair,
	}, nil
}
