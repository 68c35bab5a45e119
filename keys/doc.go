// Package keys provides secp256k1 signing helpers for revision signatures.
//
// Stable:
//   - SigningDigest, Sign, Recover and Verify, which define how a revision's
//     verification hash is signed and checked.
//   - DeriveRoleSeed, a pure deterministic derivation of per-role keys.
//
// Experimental:
//   - Filesystem-backed key storage (KeyStore). It is a local convenience for
//     the CLI and not part of the revision format.
package keys
