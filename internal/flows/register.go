package flows

import (
	"context"
	"fmt"
	"strings"
)

// RegisterRequest is the caller-supplied input for RunRegister.
type RegisterRequest struct {
	Username string
	Name     string
	Email    string
	Password string
}

// RegisterResult is what RunRegister returns on success.
type RegisterResult struct {
	User User
	Pair *TokenPair
}

// RegisterDeps carries everything RunRegister needs.
type RegisterDeps struct {
	GetByIdentifier func(ctx context.Context, identifier string) (UserRecord, error)
	IsUserNotFound  func(error) bool
	CreateUser      func(ctx context.Context, in CreateUserInput) (UserRecord, error)
	HashPassword    func(password string) (string, error)
	IssuePair       func(ctx context.Context, userID, username string) (*TokenPair, error)

	MetricInc MetricFunc
	EmitAudit AuditEmitter
	Metrics   RegisterMetrics
	Events    RegisterEvents
	Errors    RegisterErrors
}

// RegisterMetrics holds the counter ids RunRegister increments.
type RegisterMetrics struct {
	Success   int
	Duplicate int
	Failure   int
}

// RegisterEvents holds the audit event names RunRegister emits.
type RegisterEvents struct {
	Success string
	Failure string
}

// RegisterErrors holds the sentinel errors RunRegister wraps.
type RegisterErrors struct {
	EngineNotReady error
	UsernameTaken  error
	Validation     error
}

// RunRegister creates a new user and issues their first token pair. The
// username and email must both be unclaimed; a conflict on either reports
// UsernameTaken without revealing which field collided.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (*RegisterResult, error) {
	deps.MetricInc = ensureMetric(deps.MetricInc)
	deps.EmitAudit = ensureAudit(deps.EmitAudit)

	if deps.GetByIdentifier == nil || deps.IsUserNotFound == nil || deps.CreateUser == nil ||
		deps.HashPassword == nil || deps.IssuePair == nil {
		return nil, deps.Errors.EngineNotReady
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		deps.MetricInc(deps.Metrics.Failure)
		return nil, fmt.Errorf("%w: username, email and password are required", deps.Errors.Validation)
	}

	for _, identifier := range []string{req.Username, req.Email} {
		_, err := deps.GetByIdentifier(ctx, identifier)
		switch {
		case err == nil:
			deps.MetricInc(deps.Metrics.Duplicate)
			deps.EmitAudit(ctx, deps.Events.Failure, false, "", deps.Errors.UsernameTaken, func() map[string]string {
				return map[string]string{"reason": "duplicate"}
			})
			return nil, deps.Errors.UsernameTaken
		case deps.IsUserNotFound(err):
			// Free to claim.
		default:
			deps.MetricInc(deps.Metrics.Failure)
			deps.EmitAudit(ctx, deps.Events.Failure, false, "", err, nil)
			return nil, fmt.Errorf("user lookup: %w", err)
		}
	}

	hash, err := deps.HashPassword(req.Password)
	req.Password = ""
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", err, nil)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rec, err := deps.CreateUser(ctx, CreateUserInput{
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", err, nil)
		return nil, fmt.Errorf("create user: %w", err)
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

	return &RegisterResult{
		User: User{ID: rec.ID, Username: rec.Username},
		Pair: pair,
	}, nil
}
