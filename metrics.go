package tokengate

import "tokengate/internal/metrics"

// MetricID identifies one Engine counter.
type MetricID = metrics.MetricID

// MetricsSnapshot is a point-in-time copy of all Engine counters, indexed
// by MetricID.
type MetricsSnapshot = metrics.Snapshot

// Counter ids exposed by MetricsSnapshot.
const (
	MetricRegisterSuccess   = metrics.MetricRegisterSuccess
	MetricRegisterDuplicate = metrics.MetricRegisterDuplicate
	MetricRegisterFailure   = metrics.MetricRegisterFailure
	MetricLoginSuccess      = metrics.MetricLoginSuccess
	MetricLoginFailure      = metrics.MetricLoginFailure
	MetricPairIssued        = metrics.MetricPairIssued
	MetricIssueFailure      = metrics.MetricIssueFailure
	MetricAuthAccepted      = metrics.MetricAuthAccepted
	MetricAuthRenewed       = metrics.MetricAuthRenewed
	MetricAuthRejected      = metrics.MetricAuthRejected
	MetricLogout            = metrics.MetricLogout
	MetricStoreError        = metrics.MetricStoreError
)
