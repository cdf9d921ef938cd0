package flows

import (
	"context"
	"fmt"
)

// LogoutDeps carries everything the logout flows need.
type LogoutDeps struct {
	DeleteByUser  func(ctx context.Context, userID string) error
	DeleteByToken func(ctx context.Context, token string) error

	MetricInc MetricFunc
	EmitAudit AuditEmitter
	Metrics   LogoutMetrics
	Events    LogoutEvents
	Errors    LogoutErrors
}

// LogoutMetrics holds the counter ids the logout flows increment.
type LogoutMetrics struct {
	Logout     int
	StoreError int
}

// LogoutEvents holds the audit event names the logout flows emit.
type LogoutEvents struct {
	Logout string
}

// LogoutErrors holds the sentinel errors the logout flows wrap.
type LogoutErrors struct {
	EngineNotReady   error
	StoreUnavailable error
}

// RunLogout revokes the user's stored refresh token. Logging out a user
// with no live session is a no-op, not an error.
func RunLogout(ctx context.Context, userID string, deps LogoutDeps) error {
	deps.MetricInc = ensureMetric(deps.MetricInc)
	deps.EmitAudit = ensureAudit(deps.EmitAudit)

	if deps.DeleteByUser == nil {
		return deps.Errors.EngineNotReady
	}
	if userID == "" {
		return nil
	}

	if err := deps.DeleteByUser(ctx, userID); err != nil {
		deps.MetricInc(deps.Metrics.StoreError)
		deps.EmitAudit(ctx, deps.Events.Logout, false, userID, err, nil)
		if deps.Errors.StoreUnavailable != nil {
			return fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
		return err
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, userID, nil, nil)
	return nil
}

// RunLogoutByToken revokes the session holding the given refresh token,
// for callers that only have the cookie value at hand. Revoking a token
// that was already rotated away leaves the newer session intact.
func RunLogoutByToken(ctx context.Context, token string, deps LogoutDeps) error {
	deps.MetricInc = ensureMetric(deps.MetricInc)
	deps.EmitAudit = ensureAudit(deps.EmitAudit)

	if deps.DeleteByToken == nil {
		return deps.Errors.EngineNotReady
	}
	if token == "" {
		return nil
	}

	if err := deps.DeleteByToken(ctx, token); err != nil {
		deps.MetricInc(deps.Metrics.StoreError)
		deps.EmitAudit(ctx, deps.Events.Logout, false, "", err, nil)
		if deps.Errors.StoreUnavailable != nil {
			return fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
		return err
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, "", nil, nil)
	return nil
}
