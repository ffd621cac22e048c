// Package password implements password hashing and verification with Argon2id defaults
// and a legacy bcrypt verifier for migrating older credentials.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and tag use standard base64 without padding. [AlgorithmOf] classifies any stored
// hash by prefix, and [Argon2.NeedsRehash] reports hashes produced by another algorithm
// or with parameters that differ from the active [Config] so the caller can re-hash on
// the next successful login.
//
// # Architecture boundaries
//
// The hasher is the only parameter authority. Callers never pick Argon2 parameters
// per call; credential and backup-code flows always go through an [Argon2] instance.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Return errors from Verify. Malformed input verifies false.
//   - Log plaintext passwords or hash parameters at runtime.
package password
