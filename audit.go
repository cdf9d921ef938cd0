package tokengate

import "tokengate/internal/audit"

// AuditEvent is the event model delivered to audit sinks. Events never
// carry token strings or passwords.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Engine's async dispatcher.
// Implementations must be safe for concurrent use.
type AuditSink = audit.Sink

// NoOpAuditSink drops all events.
type NoOpAuditSink = audit.NoOpSink

// Audit event types emitted by the Engine.
const (
	EventRegister     = "register"
	EventLogin        = "login"
	EventLogout       = "logout"
	EventPairIssued   = "pair_issued"
	EventIssueFailure = "issue_failure"
	EventAuthenticate = "authenticate"
)
