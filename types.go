package tokengate

import "context"

// User is the authenticated identity the Engine reports to callers.
type User struct {
	ID       string
	Username string
}

// TokenPair is a freshly issued access/refresh token pair. The refresh
// token it carries has already been persisted.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is the outcome of a successful Authenticate call.
type AuthResult struct {
	User User

	// RenewedAccessToken is non-empty when the presented access token had
	// expired and a replacement was minted. Callers should propagate it
	// to the client; the refresh token is unchanged.
	RenewedAccessToken string
}

// Renewed reports whether Authenticate minted a replacement access token.
func (r AuthResult) Renewed() bool { return r.RenewedAccessToken != "" }

// RegisterRequest is the input to Engine.Register.
type RegisterRequest struct {
	Username string
	Name     string
	Email    string
	Password string
}

// UserRecord is a stored user as a UserStore returns it.
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PasswordHash string
}

// CreateUserInput holds the fields the Engine passes to UserStore.Create.
type CreateUserInput struct {
	Username     string
	Email        string
	Name         string
	PasswordHash string
}

// UserStore is the host application's user backend. GetByIdentifier must
// resolve both usernames and email addresses and return ErrUserNotFound
// (possibly wrapped) when no user matches.
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	Create(ctx context.Context, in CreateUserInput) (UserRecord, error)
}
