// Package observe provides Prometheus metrics and OpenTelemetry tracing for
// template compilation and binding updates.
//
// Metrics collected (namespace "fbind" by default):
//   - fbind_nodes_compiled_total: elements compiled
//   - fbind_bindings_total: bindings created, by update strategy
//   - fbind_updates_total: update strategy applications, by strategy
//   - fbind_directive_errors_total: directive and binding failures, by error code
//   - fbind_mount_duration_seconds: time spent in a mount
//
// A nil *Metrics is valid and records nothing, so callers never need to check
// whether metrics were configured.
package observe
