// Package internal contains helpers that are private to goVault: token identifiers,
// unbiased one-time codes and token digests.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - cli: the govault command tree
//   - flows: flow orchestrators behind every Engine operation
//   - keylock: per-key advisory locks
//   - kinds: error kinds shared by every package
//   - metrics: lock-free counters and latency histograms
//   - rate: attempt limiting for second-factor verification
//   - security: security posture report derivation
//
// # What this package must NOT do
//
//   - Export types that appear in the public goVault API.
//   - Be imported by any package outside the goVault module.
package internal
