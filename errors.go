package tokengate

import "errors"

var (
	// ErrUnauthorized reports a request that carried no credentials at all.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden reports a request whose credentials were present but
	// failed verification, revocation, or persistence checks.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials reports a login with an unknown identifier or
	// a wrong password, deliberately without distinguishing the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken reports a registration whose username or email is
	// already claimed.
	ErrUsernameTaken = errors.New("username or email already taken")
	// ErrValidation reports a registration with missing required fields.
	ErrValidation = errors.New("validation failed")
	// ErrUserNotFound is returned by UserStore implementations when no
	// user matches the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable reports a refresh store that could not be
	// reached or answered with an infrastructure error.
	ErrStoreUnavailable = errors.New("refresh store unavailable")
	// ErrEngineNotReady reports an Engine used before Build wired its
	// dependencies.
	ErrEngineNotReady = errors.New("engine not ready")
)
