// Package tokengate provides a credential issuance and session renewal
// engine built on JWT access tokens and persisted, rotating refresh tokens.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Token model
//
// Every session is a pair: a short-lived access token and a long-lived
// refresh token, both HS256 JWTs signed with distinct secrets. Access
// tokens are verified purely cryptographically; refresh tokens must
// additionally match the single stored record for their user. Issuing a
// new pair atomically replaces the stored refresh token, so at most one
// refresh token per user is ever live.
//
// # Renewal
//
// [Engine.Authenticate] accepts an expired access token when the request
// also carries a live, persisted refresh token: it mints a replacement
// access token on the spot and reports it in the [AuthResult]. The refresh
// token itself is never rotated by renewal; only explicit issuance
// (login, register, [Engine.IssueTokenPair]) rotates it.
//
// # Architecture boundaries
//
// tokengate is the public surface. It exposes [Engine], [Builder],
// [Config], and value types. Flow orchestration, audit dispatch, and
// metric counters live under internal/ and are never exported directly.
//
// # What this package must NOT do
//
//   - Expose Redis clients, store internals, or token encoding details in
//     its public API.
//   - Log or persist token strings, passwords, or password hashes in
//     audit events.
//   - Perform I/O before [Builder.Build].
package tokengate
