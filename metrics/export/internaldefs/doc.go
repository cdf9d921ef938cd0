// Package internaldefs holds the shared metric naming table used by the
// Prometheus and OTel exporters. It exists so both exporters expose
// identical metric names and help strings.
package internaldefs
