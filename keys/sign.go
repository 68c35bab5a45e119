package keys

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"xdao.co/aqua/ident"
)

const (
	signPrefix     = "I sign the following page verification_hash: [0x"
	personalPrefix = "\x19Ethereum Signed Message:\n"

	// compactMagic is the offset SignCompact adds to the recovery code.
	compactMagic = 27
)

// ErrSignatureMismatch is returned when a signature does not recover to the
// expected public key.
var ErrSignatureMismatch = errors.New("keys: signature does not match public key")

// SigningMessage returns the human-readable message a wallet signs for h.
func SigningMessage(h ident.Hash) string {
	return signPrefix + h.String() + "]"
}

// SigningDigest returns the EIP-191 personal-sign digest of SigningMessage(h).
func SigningDigest(h ident.Hash) [32]byte {
	msg := SigningMessage(h)
	k := sha3.NewLegacyKeccak256()
	_, _ = k.Write([]byte(personalPrefix))
	_, _ = k.Write([]byte(strconv.Itoa(len(msg))))
	_, _ = k.Write([]byte(msg))
	var out [32]byte
	copy(out[:], k.Sum(nil))
	return out
}

// Sign produces a recoverable signature over SigningDigest(h).
//
// Nonces follow RFC 6979 and s is always in the lower half of the order, so
// the same key and hash always produce the same signature.
func Sign(h ident.Hash, priv *secp256k1.PrivateKey) (ident.Signature, error) {
	if priv == nil {
		return ident.Signature{}, fmt.Errorf("missing private key")
	}
	digest := SigningDigest(h)
	compact := ecdsa.SignCompact(priv, digest[:], false)
	var rs [64]byte
	copy(rs[:], compact[1:])
	return ident.NewSignature(rs, compact[0]-compactMagic)
}

// Recover returns the public key that produced sig over SigningDigest(h).
func Recover(h ident.Hash, sig ident.Signature) (ident.PublicKey, error) {
	digest := SigningDigest(h)
	rs := sig.RS()
	compact := make([]byte, 0, ident.SignatureSize)
	compact = append(compact, sig.RecoveryID()+compactMagic)
	compact = append(compact, rs[:]...)
	pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return ident.PublicKey{}, fmt.Errorf("keys: recover: %w", err)
	}
	return ident.PublicKeyFromPoint(pub), nil
}

// Verify reports whether sig over h recovers to pub.
func Verify(h ident.Hash, sig ident.Signature, pub ident.PublicKey) error {
	got, err := Recover(h, sig)
	if err != nil {
		return err
	}
	if got != pub {
		return ErrSignatureMismatch
	}
	return nil
}
