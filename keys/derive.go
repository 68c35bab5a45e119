package keys

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// SeedSize is the size of a secp256k1 private scalar.
const SeedSize = 32

const roleKDFLabel = "aqua-keys-v1"

// PrivateKeyFromSeed interprets seed as a secp256k1 private scalar.
// The scalar must be in [1, N-1].
func PrivateKeyFromSeed(seed []byte) (*secp256k1.PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	if !validScalar(seed) {
		return nil, fmt.Errorf("seed is not a valid secp256k1 scalar")
	}
	return secp256k1.PrivKeyFromBytes(seed), nil
}

// DeriveRoleSeed deterministically derives a role-specific seed from a root seed.
//
// The KDF is SHA3-256(root ‖ 0 ‖ label ‖ 0 ‖ "role:" ‖ role ‖ counter) with the
// smallest counter that yields a valid scalar.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	var ctr [4]byte
	for i := uint32(0); i < 1<<16; i++ {
		binary.BigEndian.PutUint32(ctr[:], i)
		h := sha3.New256()
		_, _ = h.Write(rootSeed)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(roleKDFLabel))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte("role:"))
		_, _ = h.Write([]byte(role))
		_, _ = h.Write(ctr[:])
		sum := h.Sum(nil)
		if validScalar(sum) {
			return sum, nil
		}
	}
	return nil, fmt.Errorf("kdf produced no valid scalar")
}

func validScalar(b []byte) bool {
	var s secp256k1.ModNScalar
	overflow := s.SetByteSlice(b)
	return !overflow && !s.IsZero()
}
