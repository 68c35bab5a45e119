package ident

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const hexPrefix = "0x"

// layout describes the canonical string form of one identifier kind.
type layout struct {
	name     string
	prefixed bool
}

// parseFixed runs the shared validation pipeline and decodes s into dst.
//
// Checks run in a fixed order and stop at the first failure: case, prefix,
// length, hex digits. Structural checks are left to the caller.
func parseFixed(s string, l layout, dst []byte) error {
	if i := indexUpper(s); i >= 0 {
		return newError(KindNotLowercase, l.name, fmt.Sprintf("uppercase character %q at offset %d", s[i], i))
	}
	body, hasPrefix := strings.CutPrefix(s, hexPrefix)
	switch {
	case hasPrefix && !l.prefixed:
		return newError(KindUnexpectedPrefix, l.name, "unexpected 0x prefix")
	case !hasPrefix && l.prefixed:
		return newError(KindMissingPrefix, l.name, "missing 0x prefix")
	}
	if len(body) != 2*len(dst) {
		return newError(KindWrongLength, l.name, fmt.Sprintf("got %d hex characters, want %d", len(body), 2*len(dst)))
	}
	if err := decodeFixed(body, dst); err != nil {
		return wrapError(KindInvalidHex, l.name, err.Error(), err)
	}
	return nil
}

// decodeFixed decodes exactly 2*len(dst) lowercase hex characters into dst.
// Inputs that are too short, too long, or contain anything outside [0-9a-f]
// are rejected; dst is left untouched on error.
func decodeFixed(s string, dst []byte) error {
	if len(s) != 2*len(dst) {
		return fmt.Errorf("hex length %d, want %d", len(s), 2*len(dst))
	}
	var tmp [128]byte
	buf := tmp[:0]
	if len(dst) > len(tmp) {
		buf = make([]byte, 0, len(dst))
	}
	for i := 0; i < len(s); i += 2 {
		hi, ok := lowerNibble(s[i])
		if !ok {
			return fmt.Errorf("invalid hex character %q at offset %d", s[i], i)
		}
		lo, ok := lowerNibble(s[i+1])
		if !ok {
			return fmt.Errorf("invalid hex character %q at offset %d", s[i+1], i+1)
		}
		buf = append(buf, hi<<4|lo)
	}
	copy(dst, buf)
	return nil
}

// appendHex formats src as lowercase hex, optionally with the 0x prefix,
// using a single allocation of the exact output size.
func appendHex(src []byte, prefixed bool) string {
	n := 2 * len(src)
	if prefixed {
		n += len(hexPrefix)
	}
	out := make([]byte, n)
	off := 0
	if prefixed {
		off = copy(out, hexPrefix)
	}
	hex.Encode(out[off:], src)
	return string(out)
}

func lowerNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

func indexUpper(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			return i
		}
	}
	return -1
}
