// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunVerifyAndUpgrade, RunIssuePair, RunVerifySMS, etc.) accepts
// a typed dependency struct and has no side effects beyond those dependencies. The
// Engine stays thin and flows can be tested with stub dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the store, token registry, JWT manager,
// password hasher, rate limiter, audit dispatcher, and metrics. They do NOT own any
// of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goVault (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions and
//     interfaces.
package flows
