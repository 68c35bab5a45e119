package ident

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressSize is the size of a ledger account address.
const AddressSize = 20

// Address is a ledger account address derived from a PublicKey.
//
// Canonical string form: "0x" followed by 40 hex characters carrying the
// EIP-55 mixed-case checksum. ParseAddress accepts only that rendering.
type Address [AddressSize]byte

const addrName = "address"

// DeriveAddress returns the last 20 bytes of Keccak-256 over the 64 point
// bytes that follow the format byte.
func DeriveAddress(pub PublicKey) Address {
	d := keccak256(pub.b[1:])
	var a Address
	copy(a[:], d[len(d)-AddressSize:])
	return a
}

// ParseAddress parses an EIP-55 checksummed address.
func ParseAddress(s string) (Address, error) {
	body, ok := strings.CutPrefix(s, hexPrefix)
	if !ok {
		return Address{}, newError(KindMissingPrefix, addrName, "missing 0x prefix")
	}
	if len(body) != 2*AddressSize {
		return Address{}, newError(KindWrongLength, addrName, fmt.Sprintf("got %d hex characters, want %d", len(body), 2*AddressSize))
	}
	var a Address
	if _, err := hex.Decode(a[:], []byte(body)); err != nil {
		return Address{}, wrapError(KindInvalidHex, addrName, err.Error(), err)
	}
	if want := a.String(); want != s {
		return Address{}, newError(KindInvalidChecksum, addrName, "checksum mismatch, want "+want)
	}
	return a, nil
}

// String renders the EIP-55 checksummed form.
func (a Address) String() string {
	lower := appendHex(a[:], false)
	sum := keccak256([]byte(lower))
	out := make([]byte, 0, len(hexPrefix)+len(lower))
	out = append(out, hexPrefix...)
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func (a Address) Bytes() []byte { return append([]byte(nil), a[:]...) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(data)
	return h.Sum(nil)
}
