// Package otel publishes engine counters through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine component
// (govault.credentials.events, govault.tokens.events, govault.twofactor.events,
// govault.sharing.events) with an "event" attribute per engine counter. Latency
// histograms export a bucket gauge keyed by "le" and a count gauge. One callback
// reads [goVault.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
