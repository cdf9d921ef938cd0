// Package metrics provides lock-free counters for tokengate observability.
//
// # Design
//
// Counters are atomic uint64 slots indexed by [MetricID]; the write path is
// allocation-free. Export (Prometheus text, OTel instruments) lives in
// metrics/export/ and reads [Snapshot] values.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import tokengate or any sibling package.
//   - Expose global metric registries.
package metrics

import "sync/atomic"

// MetricID identifies a single counter slot.
type MetricID int

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricRegisterFailure
	MetricLoginSuccess
	MetricLoginFailure
	MetricPairIssued
	MetricIssueFailure
	MetricAuthAccepted
	MetricAuthRenewed
	MetricAuthRejected
	MetricLogout
	MetricStoreError

	MetricIDCount
)

// Config controls whether the metric system records anything.
type Config struct {
	Enabled bool
}

// Metrics holds the counter slots. A disabled Metrics records nothing but
// still satisfies every call site.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters [MetricIDCount]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc atomically increments the counter for id. Out-of-range ids are
// ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of a single counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id < 0 || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter into an immutable value.
func (m *Metrics) Snapshot() Snapshot {
	var s Snapshot
	if m == nil {
		return s
	}
	for i := range m.counters {
		s.Counters[i] = m.counters[i].Load()
	}
	return s
}
