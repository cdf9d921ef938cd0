// Package audit implements async event dispatching for security-relevant
// session operations (register, login, authenticate, logout).
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full
//     semantics.
//   - [Event] — structured record with timestamp, type, user, IP, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide
// which events to emit — that responsibility belongs to the Engine and flow
// functions.
//
// # What this package must NOT do
//
//   - Carry token strings or passwords in events.
//   - Import tokengate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
