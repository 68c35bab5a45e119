package ident

import (
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestDeriveAddress_GoldenVectors(t *testing.T) {
	cases := []struct {
		pub  string
		want string
	}{
		{vecPubKeyG, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"},
		{vecPubKey, "0xd0fFc39Fb1968864E386b888D2b1e4e34fF65393"},
	}
	for _, tc := range cases {
		pub := mustPubKey(t, tc.pub)
		a := DeriveAddress(pub)
		if got := a.String(); got != tc.want {
			t.Fatalf("DeriveAddress(%s) = %s, want %s", tc.pub, got, tc.want)
		}
		if DeriveAddress(pub) != a {
			t.Fatalf("DeriveAddress is not deterministic")
		}
	}
}

func TestDeriveAddress_MatchesPrivateKeyOne(t *testing.T) {
	var one [32]byte
	one[31] = 1
	priv := secp256k1.PrivKeyFromBytes(one[:])
	pub := PublicKeyFromPoint(priv.PubKey())
	if pub.String() != vecPubKeyG {
		t.Fatalf("1*G = %s", pub.String())
	}
}

func TestParseAddress(t *testing.T) {
	const valid = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	a, err := ParseAddress(valid)
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if a.String() != valid {
		t.Fatalf("round trip mismatch")
	}

	cases := []struct {
		name  string
		input string
		kind  Kind
	}{
		{"all lowercase", strings.ToLower(valid), KindInvalidChecksum},
		{"all uppercase body", "0x" + strings.ToUpper(valid[2:]), KindInvalidChecksum},
		{"missing prefix", valid[2:], KindMissingPrefix},
		{"short", valid[:40], KindWrongLength},
		{"long", valid + "00", KindWrongLength},
		{"non hex", "0xZE5F4552091A69125d5DfCb7b8C2659029395Bdf", KindInvalidHex},
	}
	for _, tc := range cases {
		if _, err := ParseAddress(tc.input); !IsKind(err, tc.kind) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}
}
