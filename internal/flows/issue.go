package flows

import (
	"context"
	"fmt"
	"time"
)

// IssueDeps carries everything RunIssuePair needs.
type IssueDeps struct {
	IssueAccess  func(subject, username string) (string, error)
	IssueRefresh func(subject, username string) (string, error)
	RefreshTTL   time.Duration
	Now          func() time.Time

	// PutRefresh atomically replaces the user's stored refresh token.
	PutRefresh func(ctx context.Context, userID, token string, expiresAt time.Time) error

	MetricInc MetricFunc
	EmitAudit AuditEmitter
	Metrics   IssueMetrics
	Events    IssueEvents
	Errors    IssueErrors
}

// IssueMetrics holds the counter ids RunIssuePair increments.
type IssueMetrics struct {
	PairIssued   int
	IssueFailure int
	StoreError   int
}

// IssueEvents holds the audit event names RunIssuePair emits.
type IssueEvents struct {
	PairIssued   string
	IssueFailure string
}

// IssueErrors holds the sentinel errors RunIssuePair wraps.
type IssueErrors struct {
	EngineNotReady   error
	StoreUnavailable error
}

// RunIssuePair mints an access/refresh pair for the user and persists the
// refresh token. The pair is only returned once persistence succeeds; a
// store failure discards both tokens and reports an error.
func RunIssuePair(ctx context.Context, userID, username string, deps IssueDeps) (*TokenPair, error) {
	deps.MetricInc = ensureMetric(deps.MetricInc)
	deps.EmitAudit = ensureAudit(deps.EmitAudit)
	deps.Now = ensureNow(deps.Now)

	if deps.IssueAccess == nil || deps.IssueRefresh == nil || deps.PutRefresh == nil || deps.RefreshTTL <= 0 {
		return nil, deps.Errors.EngineNotReady
	}

	access, err := deps.IssueAccess(userID, username)
	if err != nil {
		deps.MetricInc(deps.Metrics.IssueFailure)
		deps.EmitAudit(ctx, deps.Events.IssueFailure, false, userID, err, nil)
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	refreshTok, err := deps.IssueRefresh(userID, username)
	if err != nil {
		deps.MetricInc(deps.Metrics.IssueFailure)
		deps.EmitAudit(ctx, deps.Events.IssueFailure, false, userID, err, nil)
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}

	expiresAt := deps.Now().Add(deps.RefreshTTL)
	if err := deps.PutRefresh(ctx, userID, refreshTok, expiresAt); err != nil {
		deps.MetricInc(deps.Metrics.StoreError)
		deps.EmitAudit(ctx, deps.Events.IssueFailure, false, userID, err, nil)
		if deps.Errors.StoreUnavailable != nil {
			return nil, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
		return nil, err
	}

	deps.MetricInc(deps.Metrics.PairIssued)
	deps.EmitAudit(ctx, deps.Events.PairIssued, true, userID, nil, nil)

	return &TokenPair{AccessToken: access, RefreshToken: refreshTok}, nil
}
