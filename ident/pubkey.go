package ident

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PublicKeySize is the size of an uncompressed secp256k1 point.
const PublicKeySize = 65

const uncompressedFormat = 0x04

// PublicKey is an uncompressed secp256k1 point.
//
// Canonical string form: "0x" followed by 130 lowercase hex characters. A
// PublicKey obtained from ParsePublicKey or PublicKeyFromBytes always holds a
// point on the curve; the zero value holds none and fails Point.
type PublicKey struct {
	b [PublicKeySize]byte
}

var pubKeyLayout = layout{name: "public key", prefixed: true}

// ParsePublicKey parses the canonical string form of a PublicKey.
func ParsePublicKey(s string) (PublicKey, error) {
	var raw [PublicKeySize]byte
	if err := parseFixed(s, pubKeyLayout, raw[:]); err != nil {
		return PublicKey{}, err
	}
	return publicKeyFromArray(raw)
}

// PublicKeyFromBytes validates a 65-byte uncompressed point.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != PublicKeySize {
		return PublicKey{}, newError(KindWrongLength, pubKeyLayout.name, fmt.Sprintf("got %d bytes, want %d", len(b), PublicKeySize))
	}
	var raw [PublicKeySize]byte
	copy(raw[:], b)
	return publicKeyFromArray(raw)
}

// PublicKeyFromPoint serializes a curve point into its uncompressed form.
func PublicKeyFromPoint(p *secp256k1.PublicKey) PublicKey {
	var pk PublicKey
	copy(pk.b[:], p.SerializeUncompressed())
	return pk
}

func publicKeyFromArray(raw [PublicKeySize]byte) (PublicKey, error) {
	// Hybrid encodings (0x06, 0x07) are valid points too but are not the
	// canonical form.
	if raw[0] != uncompressedFormat {
		return PublicKey{}, newError(KindInvalidCurvePoint, pubKeyLayout.name, fmt.Sprintf("format byte 0x%02x, want 0x04", raw[0]))
	}
	if _, err := secp256k1.ParsePubKey(raw[:]); err != nil {
		return PublicKey{}, wrapError(KindInvalidCurvePoint, pubKeyLayout.name, "not a point on secp256k1", err)
	}
	return PublicKey{b: raw}, nil
}

// Point returns the curve point for use with signature primitives.
func (p PublicKey) Point() (*secp256k1.PublicKey, error) {
	pt, err := secp256k1.ParsePubKey(p.b[:])
	if err != nil {
		return nil, wrapError(KindInvalidCurvePoint, pubKeyLayout.name, "not a point on secp256k1", err)
	}
	return pt, nil
}

func (p PublicKey) String() string { return appendHex(p.b[:], true) }

// Bytes returns a copy of the 65-byte uncompressed encoding.
func (p PublicKey) Bytes() []byte { return append([]byte(nil), p.b[:]...) }

func (p PublicKey) IsZero() bool { return p == PublicKey{} }

func (p PublicKey) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
