// Package shamir splits a secret into n shares so that any k of them recover it.
//
// Every byte of the secret is the constant term of its own random polynomial of
// degree k-1 over GF(2^8) reduced by x^8 + x^4 + x^3 + x + 1 (0x11b). Share i is the
// evaluation of every polynomial at x = i.
//
// # Share payload
//
// A payload is standard base64 of
//
//	index (1 byte) || evaluation of byte 0 || evaluation of byte 1 || ...
//
// so it is one byte longer than the secret. [Combine] needs only payloads; the
// threshold recorded on a [Share] is informational and is not enforced when
// recombining. Fewer than k shares yield bytes unrelated to the secret.
//
// # Social recovery
//
// [CreateSocial] hands share i to guardian i and labels each assignment with a
// random share identifier. [Assess] grades a (k, n) choice.
//
// # What this package must NOT do
//
//   - Persist or log shares or secrets.
//   - Keep state between calls.
package shamir
