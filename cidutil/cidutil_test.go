package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/aqua/ident"
)

func TestCIDv1RawSHA3512_MatchesIdentSum(t *testing.T) {
	data := []byte("hello")
	c, err := CIDv1RawSHA3512(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA3512: %v", err)
	}
	if c.Version() != 1 || c.Type() != cid.Raw {
		t.Fatalf("unexpected cid %s", c)
	}
	h, err := ToHash(c)
	if err != nil {
		t.Fatalf("ToHash: %v", err)
	}
	if h != ident.Sum(data) {
		t.Fatalf("digest mismatch")
	}
	if !FromHash(h).Equals(c) {
		t.Fatalf("FromHash does not rebuild the same cid")
	}

	parsed, err := cid.Decode(c.String())
	if err != nil {
		t.Fatalf("cid.Decode: %v", err)
	}
	if !parsed.Equals(c) {
		t.Fatalf("string round trip mismatch")
	}
}

func TestToHash_Rejects(t *testing.T) {
	if _, err := ToHash(cid.Undef); err == nil {
		t.Fatalf("expected error for undefined cid")
	}
	c, err := CIDv1RawSHA3512([]byte("x"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA3512: %v", err)
	}
	dagPB := cid.NewCidV1(cid.DagProtobuf, c.Hash())
	if _, err := ToHash(dagPB); err == nil {
		t.Fatalf("expected error for non-raw codec")
	}
}
