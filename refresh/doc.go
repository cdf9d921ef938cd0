// Package refresh persists the server-side refresh-token record that makes a
// signed refresh token honorable.
//
// # Rotation invariant
//
// At most one live record exists per user. [Store.Put] is an atomic replace:
// issuing a new refresh token supersedes any previous record for that user in
// a single store operation, so a concurrent reader never observes two live
// records nor a transient gap between delete and insert.
//
// # Implementations
//
// [RedisStore] keeps records as compact binary blobs with a token-to-user
// index, using Lua scripts for atomic replace and revocation. [PostgresStore]
// keeps records in a table keyed by user id, using an upsert.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT mint or verify token
// signatures, and it never interprets token contents — a token string is an
// opaque key here.
package refresh
