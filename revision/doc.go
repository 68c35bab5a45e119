// Package revision models revisions and the branches they form.
//
// A Revision's identity is its verification hash, which commits to the
// content hash, the metadata hash, and the predecessor's signature and
// witness. Revisions link through previous_verification_hash; a Branch
// records the resulting hashes in insertion order starting at the genesis.
//
// Revisions are immutable values. Construct them with New and the Sign and
// WithWitness builders, then check them with Verify.
package revision
