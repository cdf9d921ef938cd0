// Package otel bridges tokengate engine counters into OpenTelemetry
// observable instruments. The exporter registers one callback that reads a
// metrics snapshot on each collection cycle; the engine hot path stays
// allocation-free.
package otel
