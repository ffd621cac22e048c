// Package goVault protects credentials and secrets: password hashing with algorithm
// migration, access/refresh token issuance with per-principal session caps,
// second-factor verification, Shamir secret sharing and Poseidon commitments.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goVault is the public surface. It exposes [Engine], [Builder], [Config] and value
// types (TokenPair, Session, MetricsSnapshot, ...). Flow orchestration, rate
// limiting, audit dispatch and metrics live under internal/ and are never exported.
// Persistence is delegated to a [store.Store]; the refresh registry and access
// blacklist are in-process unless [Builder.WithRedis] is used.
//
// # Errors
//
// Every failure wraps one sentinel (ErrInvalidInput, ErrTokenRevoked, ...). Use
// errors.Is or [KindOf] for the stable string identifier. [Engine.Login] folds
// unknown principals and wrong passwords into ErrVerificationFailed.
//
// # What this package must NOT do
//
//   - Log or return plaintext passwords, TOTP secrets or backup codes after issuance.
//   - Import any sub-package that re-imports goVault (no import cycles).
//
// # Performance contract
//
// VerifyAccess is the hot path: one HMAC check and one blacklist lookup. Password
// hashing is bounded by Password.MaxConcurrentHashes so bursts queue instead of
// exhausting memory.
package goVault
