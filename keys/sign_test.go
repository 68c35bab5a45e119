package keys

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"xdao.co/aqua/ident"
)

const testHash = "d9e09f8529fed3b909876f34f21c7148d73de01d82f8aee43c52d9ee2601999ddcbf4593a19baac497d9d83bb98c94c2508b8157efafcd6484cbca7c4953af5f"

func testKey(t *testing.T, b byte) *secp256k1.PrivateKey {
	t.Helper()
	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = b
	}
	priv, err := PrivateKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("PrivateKeyFromSeed: %v", err)
	}
	return priv
}

func TestSigningDigest_KnownVector(t *testing.T) {
	h := ident.MustParseHash(testHash)
	if msg := SigningMessage(h); !strings.HasPrefix(msg, "I sign the following page verification_hash: [0x") || len(msg) != 177 {
		t.Fatalf("unexpected message %q", msg)
	}
	d := SigningDigest(h)
	if got := hex.EncodeToString(d[:]); got != "ab4e85bc293cce4837ed724a112dab16c3caff90194f0284fb84d50d71f8da94" {
		t.Fatalf("digest = %s", got)
	}
}

func TestSign_RecoversSigner(t *testing.T) {
	priv := testKey(t, 0x42)
	pub := ident.PublicKeyFromPoint(priv.PubKey())
	h := ident.Sum([]byte("revision"))

	sig, err := Sign(h, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	got, err := Recover(h, sig)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if got != pub {
		t.Fatalf("recovered %s, want %s", got, pub)
	}
	if err := Verify(h, sig, pub); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	again, err := Sign(h, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if again != sig {
		t.Fatalf("expected deterministic signatures")
	}

	parsed, err := ident.ParseSignature(sig.String())
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if err := Verify(h, parsed, pub); err != nil {
		t.Fatalf("Verify after round trip: %v", err)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	priv := testKey(t, 0x42)
	other := ident.PublicKeyFromPoint(testKey(t, 0x43).PubKey())
	h := ident.Sum([]byte("revision"))

	sig, err := Sign(h, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(h, sig, other); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}

	tampered := h
	tampered[0] ^= 1
	if err := Verify(tampered, sig, ident.PublicKeyFromPoint(priv.PubKey())); err == nil {
		t.Fatalf("expected failure for a different hash")
	}
}

func TestSign_NilKey(t *testing.T) {
	if _, err := Sign(ident.Sum(nil), nil); err == nil {
		t.Fatalf("expected error")
	}
}
