package revision

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/merkle"
)

func testKey(t *testing.T, b byte) *secp256k1.PrivateKey {
	t.Helper()
	seed := bytes.Repeat([]byte{b}, 32)
	return secp256k1.PrivKeyFromBytes(seed)
}

func testTime(sec int) Timestamp {
	return NewTimestamp(time.Date(2024, 3, 1, 12, 0, sec, 0, time.UTC))
}

// testChain builds genesis (file, signed), second (witnessed) and third.
func testChain(t *testing.T) []Revision {
	t.Helper()
	file, err := NewFileContent("hello.txt", []byte("hello world"), "first upload")
	if err != nil {
		t.Fatalf("NewFileContent: %v", err)
	}
	genesis := New("domain-1", testTime(0), NewContent(map[string]string{"title": "Main Page"}, file), nil)
	genesis, err = genesis.Sign(testKey(t, 0x42))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	second := New("domain-1", testTime(1), NewContent(map[string]string{"main": "edited text"}, nil), &genesis)
	tree, err := merkle.Build([]ident.Hash{ident.Sum([]byte("other")), second.Hash(), ident.Sum([]byte("third"))})
	if err != nil {
		t.Fatalf("merkle.Build: %v", err)
	}
	tx, err := ident.ParseTxHash("0x17cb36e3abfe5cd2894f7b324102c3864d202bc7b85e4f3e5ec78ca2c3db79d7")
	if err != nil {
		t.Fatalf("ParseTxHash: %v", err)
	}
	second = second.WithWitness(NewWitness(genesis.Hash(), tree.Root(), "sepolia", tx, tree.Proof(1)))

	third := New("domain-1", testTime(2), NewContent(map[string]string{"main": "edited again"}, nil), &second)
	return []Revision{genesis, second, third}
}

func TestRevision_ChainVerifies(t *testing.T) {
	revs := testChain(t)
	var prev *Revision
	for i := range revs {
		if err := revs[i].Verify(prev); err != nil {
			t.Fatalf("revision %d: %v", i, err)
		}
		prev = &revs[i]
	}
	if err := VerifyChain(revs); err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}
	if !revs[0].IsGenesis() || revs[1].IsGenesis() {
		t.Fatalf("IsGenesis mismatch")
	}
}

func TestRevision_VerificationHashCommitsToPredecessor(t *testing.T) {
	revs := testChain(t)

	// Dropping the genesis signature changes what the next revision commits to.
	unsigned := revs[0]
	unsigned.Signature = nil
	if err := revs[1].VerifyMetadata(&unsigned); !IsKind(err, KindVerificationHashMismatch) {
		t.Fatalf("expected VerificationHashMismatch, got %v", err)
	}

	unwitnessed := revs[1]
	unwitnessed.Witness = nil
	if err := revs[2].VerifyMetadata(&unwitnessed); !IsKind(err, KindVerificationHashMismatch) {
		t.Fatalf("expected VerificationHashMismatch, got %v", err)
	}
}

func TestRevision_DetectsTampering(t *testing.T) {
	revs := testChain(t)

	t.Run("content", func(t *testing.T) {
		r := revs[2]
		r.Content.Content = map[string]string{"main": "forged"}
		if err := r.Verify(&revs[1]); !IsKind(err, KindContentHashMismatch) {
			t.Fatalf("expected ContentHashMismatch, got %v", err)
		}
	})

	t.Run("metadata", func(t *testing.T) {
		r := revs[2]
		r.Metadata.DomainID = "domain-2"
		if err := r.Verify(&revs[1]); !IsKind(err, KindMetadataHashMismatch) {
			t.Fatalf("expected MetadataHashMismatch, got %v", err)
		}
	})

	t.Run("verification hash", func(t *testing.T) {
		r := revs[2]
		r.Metadata.VerificationHash[0] ^= 1
		if err := r.VerifyMetadata(&revs[1]); !IsKind(err, KindVerificationHashMismatch) {
			t.Fatalf("expected VerificationHashMismatch, got %v", err)
		}
	})

	t.Run("linkage", func(t *testing.T) {
		if err := revs[2].Verify(&revs[0]); !IsKind(err, KindLinkage) {
			t.Fatalf("expected Linkage, got %v", err)
		}
		if err := revs[2].Verify(nil); !IsKind(err, KindLinkage) {
			t.Fatalf("expected Linkage for missing predecessor, got %v", err)
		}
		if err := revs[0].Verify(&revs[2]); !IsKind(err, KindLinkage) {
			t.Fatalf("expected Linkage for genesis with predecessor, got %v", err)
		}
	})

	t.Run("signature address", func(t *testing.T) {
		r := revs[0]
		sig := *r.Signature
		sig.WalletAddress[0] ^= 1
		r.Signature = &sig
		if err := r.Verify(nil); !IsKind(err, KindAddressMismatch) {
			t.Fatalf("expected AddressMismatch, got %v", err)
		}
	})

	t.Run("signature key", func(t *testing.T) {
		r := revs[0]
		sig := *r.Signature
		sig.PublicKey = ident.PublicKeyFromPoint(testKey(t, 0x43).PubKey())
		sig.WalletAddress = ident.DeriveAddress(sig.PublicKey)
		r.Signature = &sig
		if err := r.Verify(nil); !IsKind(err, KindSignatureMismatch) {
			t.Fatalf("expected SignatureMismatch, got %v", err)
		}
	})

	t.Run("signed hash", func(t *testing.T) {
		r := revs[0]
		other, err := NewSignature(ident.Sum([]byte("elsewhere")), testKey(t, 0x42))
		if err != nil {
			t.Fatalf("NewSignature: %v", err)
		}
		r.Signature = other
		if err := r.Verify(nil); !IsKind(err, KindSignedHashMismatch) {
			t.Fatalf("expected SignedHashMismatch, got %v", err)
		}
	})

	t.Run("witness proof", func(t *testing.T) {
		r := revs[1]
		w := *r.Witness
		w.StructuredMerkleProof = append([]merkle.Node(nil), w.StructuredMerkleProof...)
		w.StructuredMerkleProof[0].Successor[3] ^= 1
		r.Witness = &w
		err := r.Verify(&revs[0])
		if !IsKind(err, KindWitnessInvalid) || !errors.Is(err, merkle.ErrProofInvalid) {
			t.Fatalf("expected witness proof failure, got %v", err)
		}
	})

	t.Run("witness event hash", func(t *testing.T) {
		r := revs[1]
		w := *r.Witness
		w.WitnessEventVerificationHash[0] ^= 1
		r.Witness = &w
		err := r.Verify(&revs[0])
		if !IsKind(err, KindWitnessInvalid) || errors.Is(err, merkle.ErrProofInvalid) {
			t.Fatalf("expected event hash failure, got %v", err)
		}
	})

	t.Run("witness network", func(t *testing.T) {
		r := revs[1]
		w := *r.Witness
		w.WitnessNetwork = "mainnet"
		r.Witness = &w
		if err := r.VerifyWitness(); !IsKind(err, KindWitnessInvalid) {
			t.Fatalf("expected WitnessInvalid, got %v", err)
		}
	})
}

func TestRevision_JSONRoundTrip(t *testing.T) {
	revs := testChain(t)
	for i := range revs {
		b, err := json.Marshal(revs[i])
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var got Revision
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if got.Hash() != revs[i].Hash() {
			t.Fatalf("hash changed over JSON")
		}
		var prev *Revision
		if i > 0 {
			prev = &revs[i-1]
		}
		if err := got.Verify(prev); err != nil {
			t.Fatalf("revision %d after JSON: %v", i, err)
		}
		again, err := json.Marshal(got)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(b, again) {
			t.Fatalf("JSON is not stable:\n%s\n%s", b, again)
		}
	}
}

func TestRevision_JSONFieldNames(t *testing.T) {
	revs := testChain(t)
	b, err := json.Marshal(revs[1])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, k := range []string{
		"domain_snapshot_genesis_hash", "merkle_root", "witness_network",
		"witness_event_transaction_hash", "witness_event_verification_hash",
		"witness_hash", "structured_merkle_proof",
	} {
		if _, ok := doc["witness"][k]; !ok {
			t.Fatalf("witness missing %q", k)
		}
	}
	for _, k := range []string{"domain_id", "time_stamp", "previous_verification_hash", "metadata_hash", "verification_hash"} {
		if _, ok := doc["metadata"][k]; !ok {
			t.Fatalf("metadata missing %q", k)
		}
	}
	if doc["metadata"]["time_stamp"] != "20240301120001" {
		t.Fatalf("unexpected time_stamp %v", doc["metadata"]["time_stamp"])
	}
}

func TestRevision_BuildersDoNotMutate(t *testing.T) {
	r := New("d", testTime(0), NewContent(nil, nil), nil)
	signed, err := r.Sign(testKey(t, 0x42))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if r.Signature != nil || signed.Signature == nil {
		t.Fatalf("Sign must return a modified copy")
	}
	if signed.Hash() != r.Hash() {
		t.Fatalf("signing must not change the verification hash")
	}
}
