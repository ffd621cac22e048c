// Package prometheus exposes engine counters through client_golang.
//
// [NewCollector] wraps a [goVault.Engine] in a prometheus.Collector. Counter names
// are govault_*_total and the single histogram is
// govault_verify_access_latency_seconds. Mount [Collector.Handler] for a
// self-contained /metrics endpoint, or [Collector.Register] it with an existing
// registry.
//
// # What this package must NOT do
//
//   - Mutate engine state.
package prometheus
