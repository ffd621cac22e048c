// Package audit provides the event model, sinks and the asynchronous dispatcher
// behind the engine's audit trail.
//
// The [Dispatcher] decouples callers from sinks with a bounded channel; with
// DropIfFull set, Emit never blocks and overflow is counted instead.
//
// # What this package must NOT do
//
//   - Receive plaintext secrets. Use [MaskOTP] and [MaskPhone] before building metadata.
//   - Import goVault (to avoid import cycles).
package audit
