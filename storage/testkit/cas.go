package testkit

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/aqua/cidutil"
	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

// CASHarness describes a blob store under test.
type CASHarness struct {
	// New returns a fresh, empty store isolated from other tests.
	New func(t *testing.T) storage.CAS
	// Plant stores data under id without checking that they match, the way
	// a damaged disk or a hostile writer would. Nil skips the tamper cases.
	Plant func(t *testing.T, cas storage.CAS, id cid.Cid, data []byte)
}

// RunCASConformance checks the blob store contract revision payloads rely
// on: a payload is keyed by the CID of its file_hash and comes back only if
// it still hashes to that key.
func RunCASConformance(t *testing.T, h CASHarness) {
	t.Helper()

	t.Run("KeyedByFileHash", func(t *testing.T) {
		cas := h.New(t)
		data := []byte("Never gonna give you up")
		file, err := revision.NewFileContent("song.txt", data, "")
		if err != nil {
			t.Fatalf("NewFileContent: %v", err)
		}
		content := revision.NewContent(nil, file)

		id, err := cas.Put(file.Data)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if want := cidutil.FromHash(ident.Sum(data)); !id.Equals(want) {
			t.Fatalf("Put CID %s, want FromHash(Sum(data)) %s", id, want)
		}
		if !id.Equals(file.CID()) {
			t.Fatalf("Put CID %s differs from FileContent.CID %s", id, file.CID())
		}
		fh, err := cidutil.ToHash(id)
		if err != nil {
			t.Fatalf("ToHash: %v", err)
		}
		if fh.String() != content.Content[revision.FileHashKey] {
			t.Fatalf("blob key %s does not carry file_hash %s", fh, content.Content[revision.FileHashKey])
		}
	})

	t.Run("PayloadRoundTrip", func(t *testing.T) {
		cas := h.New(t)
		for _, data := range [][]byte{
			{},
			[]byte("x"),
			bytes.Repeat([]byte("aqua "), 200_000),
		} {
			id, err := cas.Put(data)
			if err != nil {
				t.Fatalf("Put(%d bytes): %v", len(data), err)
			}
			got, err := cas.Get(id)
			if err != nil {
				t.Fatalf("Get(%d bytes): %v", len(data), err)
			}
			if !bytes.Equal(got, data) {
				t.Fatalf("payload of %d bytes changed on round trip", len(data))
			}
			again, err := cas.Put(data)
			if err != nil || !again.Equals(id) {
				t.Fatalf("Put not idempotent: %s vs %s (err=%v)", id, again, err)
			}
		}
	})

	t.Run("MissingAndUndefined", func(t *testing.T) {
		cas := h.New(t)
		missing := cidutil.FromHash(ident.Sum([]byte("missing")))
		if cas.Has(missing) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := cas.Get(missing); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		var undef cid.Cid
		if cas.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(undef); !errors.Is(err, storage.ErrInvalidCID) {
			t.Fatalf("Get undefined: got err=%v want ErrInvalidCID", err)
		}
	})

	if h.Plant == nil {
		return
	}

	t.Run("RejectsMismatchedBlob", func(t *testing.T) {
		cas := h.New(t)
		want := []byte("the payload a revision committed to")
		id := cidutil.FromHash(ident.Sum(want))
		h.Plant(t, cas, id, []byte("something else entirely"))

		if _, err := cas.Get(id); !errors.Is(err, storage.ErrCIDMismatch) {
			t.Fatalf("Get tampered blob: got err=%v want ErrCIDMismatch", err)
		}
		// The damaged object is never silently accepted or repaired.
		if _, err := cas.Put(want); !errors.Is(err, storage.ErrImmutable) {
			t.Fatalf("Put over tampered blob: got err=%v want ErrImmutable", err)
		}
	})
}
