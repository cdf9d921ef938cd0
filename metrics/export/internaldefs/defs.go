package internaldefs

import "tokengate"

// CounterDef maps one engine counter to its exported name and help text.
type CounterDef struct {
	ID   tokengate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: tokengate.MetricRegisterSuccess, Name: "tokengate_register_success_total", Help: "Successful registrations."},
	{ID: tokengate.MetricRegisterDuplicate, Name: "tokengate_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: tokengate.MetricRegisterFailure, Name: "tokengate_register_failure_total", Help: "Failed registrations."},
	{ID: tokengate.MetricLoginSuccess, Name: "tokengate_login_success_total", Help: "Successful logins."},
	{ID: tokengate.MetricLoginFailure, Name: "tokengate_login_failure_total", Help: "Failed login attempts."},
	{ID: tokengate.MetricPairIssued, Name: "tokengate_pair_issued_total", Help: "Issued access/refresh token pairs."},
	{ID: tokengate.MetricIssueFailure, Name: "tokengate_issue_failure_total", Help: "Token pair issuance failures."},
	{ID: tokengate.MetricAuthAccepted, Name: "tokengate_auth_accepted_total", Help: "Accepted authentication attempts."},
	{ID: tokengate.MetricAuthRenewed, Name: "tokengate_auth_renewed_total", Help: "Authentications that renewed an expired access token."},
	{ID: tokengate.MetricAuthRejected, Name: "tokengate_auth_rejected_total", Help: "Rejected authentication attempts."},
	{ID: tokengate.MetricLogout, Name: "tokengate_logout_total", Help: "Logout operations."},
	{ID: tokengate.MetricStoreError, Name: "tokengate_store_error_total", Help: "Refresh store infrastructure errors."},
}

// AuditDroppedName is the counter for audit events shed under load. It is
// not part of the engine snapshot and is read separately.
const AuditDroppedName = "tokengate_audit_dropped_total"

// AuditDroppedHelp documents AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
