// Package middleware exposes HTTP middleware for tokengate.Engine
// authentication.
//
// # Guards
//
//   - [Guard] — full authentication with silent access token renewal.
//   - [RequireAccess] — strict access token verification, no renewal.
//
// Guard reads the Authorization bearer header and the refresh token
// cookie, calls Engine.Authenticate, and injects the result into the
// request context. When the access token was renewed, the replacement is
// exposed to clients through the X-Renewed-Access-Token response header.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access the refresh store.
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
