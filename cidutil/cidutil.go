package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/aqua/ident"
)

// CIDv1RawSHA3512 returns a CIDv1 (raw + sha3-512) derived from data.
//
// The multihash digest is the same SHA3-512 value as ident.Sum(data), so a
// file blob's CID and its file_hash name the same bytes.
func CIDv1RawSHA3512(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA3_512, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// FromHash wraps an existing SHA3-512 digest as a raw CIDv1 without rehashing.
func FromHash(h ident.Hash) cid.Cid {
	mh, err := multihash.Encode(h[:], multihash.SHA3_512)
	if err != nil {
		// Encode only fails for unknown codes or mismatched lengths; both are
		// fixed here.
		panic(err)
	}
	return cid.NewCidV1(cid.Raw, mh)
}

// ToHash extracts the SHA3-512 digest from a raw CIDv1.
func ToHash(c cid.Cid) (ident.Hash, error) {
	if !c.Defined() {
		return ident.Hash{}, fmt.Errorf("cidutil: undefined cid")
	}
	if c.Type() != cid.Raw {
		return ident.Hash{}, fmt.Errorf("cidutil: codec 0x%x, want raw", c.Type())
	}
	dec, err := multihash.Decode(c.Hash())
	if err != nil {
		return ident.Hash{}, fmt.Errorf("cidutil: %w", err)
	}
	if dec.Code != multihash.SHA3_512 {
		return ident.Hash{}, fmt.Errorf("cidutil: multihash %s, want sha3-512", dec.Name)
	}
	return ident.HashFromBytes(dec.Digest)
}
