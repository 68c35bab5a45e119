package ident

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashSize is the size of a SHA3-512 digest.
const HashSize = 64

// Hash is a SHA3-512 digest identifying content or a revision.
//
// Canonical string form: 128 lowercase hex characters, no prefix.
// Equality and ordering are by raw bytes.
type Hash [HashSize]byte

var hashLayout = layout{name: "hash", prefixed: false}

// Sum returns the SHA3-512 digest of data.
func Sum(data []byte) Hash {
	return Hash(sha3.Sum512(data))
}

// SumConcat returns the SHA3-512 digest of the concatenation of parts.
func SumConcat(parts ...[]byte) Hash {
	h := sha3.New512()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashFromBytes copies a 64-byte digest into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, newError(KindWrongLength, hashLayout.name, fmt.Sprintf("got %d bytes, want %d", len(b), HashSize))
	}
	copy(h[:], b)
	return h, nil
}

// ParseHash parses the canonical string form of a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if err := parseFixed(s, hashLayout, h[:]); err != nil {
		return Hash{}, err
	}
	return h, nil
}

// MustParseHash is like ParseHash but panics on error. Intended for constants
// and tests.
func MustParseHash(s string) Hash {
	h, err := ParseHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) String() string { return appendHex(h[:], false) }

// Bytes returns a copy of the digest bytes.
func (h Hash) Bytes() []byte { return append([]byte(nil), h[:]...) }

func (h Hash) IsZero() bool { return h == Hash{} }

// Compare orders hashes by raw bytes.
func (h Hash) Compare(other Hash) int { return bytes.Compare(h[:], other[:]) }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
