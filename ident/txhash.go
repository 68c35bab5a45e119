package ident

import "fmt"

// TxHashSize is the size of a ledger transaction hash.
const TxHashSize = 32

// TxHash identifies the ledger transaction that carries a witness event.
//
// Canonical string form: "0x" followed by 64 lowercase hex characters. The
// prefix is mandatory; unlike Hash, an unprefixed string is rejected rather
// than repaired.
type TxHash [TxHashSize]byte

var txHashLayout = layout{name: "tx hash", prefixed: true}

func TxHashFromBytes(b []byte) (TxHash, error) {
	var t TxHash
	if len(b) != TxHashSize {
		return t, newError(KindWrongLength, txHashLayout.name, fmt.Sprintf("got %d bytes, want %d", len(b), TxHashSize))
	}
	copy(t[:], b)
	return t, nil
}

// ParseTxHash parses the canonical string form of a TxHash.
func ParseTxHash(s string) (TxHash, error) {
	var t TxHash
	if err := parseFixed(s, txHashLayout, t[:]); err != nil {
		return TxHash{}, err
	}
	return t, nil
}

func (t TxHash) String() string { return appendHex(t[:], true) }

func (t TxHash) Bytes() []byte { return append([]byte(nil), t[:]...) }

func (t TxHash) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TxHash) UnmarshalText(text []byte) error {
	parsed, err := ParseTxHash(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
