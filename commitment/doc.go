// Package commitment produces hiding commitments to non-negative amounts with the
// Poseidon hash over the BN254 scalar field, using the circomlib parameter set.
//
//	commitment = Poseidon(amount, blinding)
//
// A balance proof from [Engine.ProveAboveThreshold] is an interactive commitment:
// the blinding factor travels with the proof and the verifier trusts the prover's
// claim that the committed balance clears the threshold. It is not a zero-knowledge
// proof and must not be presented as one.
//
// # Initialization
//
// [Engine.Init] runs a Poseidon known-answer test. Until it succeeds every operation
// fails with NOT_INITIALIZED and [Engine.VerifyBalanceProof] returns false.
//
// # Encoding
//
// Field elements encode as decimal strings in JSON.
package commitment
