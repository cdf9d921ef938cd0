// Package token manages issuance and verification of the two signed token
// classes (access and refresh) using distinct HS256 secrets.
//
// # Architecture boundaries
//
// This package owns claim encoding, signing, and expiry classification. It
// does NOT consult persistence — whether a refresh token is still honored is
// decided by the refresh store, not by its signature.
//
// # What this package must NOT do
//
//   - Import tokengate or refresh (no upward imports).
//   - Sign one token class with the other class's secret.
package token
