// Package ident implements the canonical identifiers used throughout aqua:
// SHA3-512 hashes, ledger transaction hashes, secp256k1 public keys,
// recoverable signatures and ledger addresses.
//
// Every identifier has exactly one accepted string form. Parsing is a
// validation step, never a normalization step: uppercase input, a wrong
// prefix or a wrong length is rejected with a distinct Kind rather than
// repaired. For every valid value x, ParseX(x.String()) == x.
package ident
