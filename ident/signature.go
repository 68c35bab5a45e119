package ident

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// SignatureSize is the size of the wire form: r (32) ‖ s (32) ‖ v (1).
const SignatureSize = 65

// recoveryOffset is added to the curve recovery id on the wire.
const recoveryOffset = 27

// Signature is a recoverable secp256k1 ECDSA signature.
//
// The wire form is r ‖ s ‖ (recovery id + 27), rendered as "0x" followed by
// 130 lowercase hex characters.
type Signature struct {
	rs       [64]byte
	recovery byte
}

var sigLayout = layout{name: "signature", prefixed: true}

// NewSignature builds a Signature from its parts. recoveryID must be in
// [0, 3] and both scalars must be in [1, N-1].
func NewSignature(rs [64]byte, recoveryID byte) (Signature, error) {
	if recoveryID > 3 {
		return Signature{}, newError(KindInvalidRecoveryID, sigLayout.name, fmt.Sprintf("recovery id %d out of range [0,3]", recoveryID))
	}
	if err := checkScalars(rs); err != nil {
		return Signature{}, err
	}
	return Signature{rs: rs, recovery: recoveryID}, nil
}

// ParseSignature parses the canonical string form of a Signature.
func ParseSignature(s string) (Signature, error) {
	var raw [SignatureSize]byte
	if err := parseFixed(s, sigLayout, raw[:]); err != nil {
		return Signature{}, err
	}
	return signatureFromWire(raw)
}

// SignatureFromBytes decodes the 65-byte wire form.
func SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) != SignatureSize {
		return Signature{}, newError(KindWrongLength, sigLayout.name, fmt.Sprintf("got %d bytes, want %d", len(b), SignatureSize))
	}
	var raw [SignatureSize]byte
	copy(raw[:], b)
	return signatureFromWire(raw)
}

func signatureFromWire(raw [SignatureSize]byte) (Signature, error) {
	v := raw[64]
	if v < recoveryOffset || v > recoveryOffset+3 {
		return Signature{}, newError(KindInvalidRecoveryID, sigLayout.name, fmt.Sprintf("recovery byte %d not in {27,28,29,30}", v))
	}
	var rs [64]byte
	copy(rs[:], raw[:64])
	return NewSignature(rs, v-recoveryOffset)
}

func checkScalars(rs [64]byte) error {
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(rs[:32]); overflow || r.IsZero() {
		return newError(KindInvalidSignatureEncoding, sigLayout.name, "r not in [1, N-1]")
	}
	if overflow := s.SetByteSlice(rs[32:]); overflow || s.IsZero() {
		return newError(KindInvalidSignatureEncoding, sigLayout.name, "s not in [1, N-1]")
	}
	return nil
}

// RS returns the 64-byte r ‖ s pair.
func (s Signature) RS() [64]byte { return s.rs }

// RecoveryID returns the curve recovery id in [0, 3].
func (s Signature) RecoveryID() byte { return s.recovery }

// Bytes returns the 65-byte wire form.
func (s Signature) Bytes() []byte {
	out := make([]byte, 0, SignatureSize)
	out = append(out, s.rs[:]...)
	out = append(out, s.recovery+recoveryOffset)
	return out
}

func (s Signature) IsZero() bool { return s == Signature{} }

func (s Signature) String() string { return appendHex(s.Bytes(), true) }

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
