package keys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKeyStore_InitDeriveExport(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}

	seed := make([]byte, SeedSize)
	seed[SeedSize-1] = 7
	root, path, err := ks.InitializeRootKey("alice", seed, false)
	if err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode %v", info.Mode().Perm())
	}
	if _, _, err := ks.InitializeRootKey("alice", seed, false); err == nil {
		t.Fatalf("expected refusal to overwrite without flag")
	}

	role, rolePath, err := ks.DeriveKeyFromRole("alice", "witness", false)
	if err != nil {
		t.Fatalf("DeriveKeyFromRole: %v", err)
	}
	if filepath.Base(rolePath) != "witness.key" {
		t.Fatalf("unexpected role path %s", rolePath)
	}
	if role.Address == root.Address {
		t.Fatalf("role key must differ from root")
	}

	exported, err := ks.ExportKey("alice", "")
	if err != nil {
		t.Fatalf("ExportKey: %v", err)
	}
	if exported != root {
		t.Fatalf("export mismatch")
	}
	exportedRole, err := ks.ExportKey("alice", "witness")
	if err != nil {
		t.Fatalf("ExportKey role: %v", err)
	}
	if exportedRole != role {
		t.Fatalf("role export mismatch")
	}

	list, err := ks.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(list) != 1 || list[0].Name != "alice" || len(list[0].Roles) != 1 || list[0].Roles[0] != "witness" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestKeyStore_GeneratedSeed(t *testing.T) {
	ks := &KeyStore{Directory: t.TempDir()}
	id, _, err := ks.InitializeRootKey("bob", nil, false)
	if err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	priv, err := ks.LoadPrivateKey("", "bob", "", "")
	if err != nil {
		t.Fatalf("LoadPrivateKey: %v", err)
	}
	seed := priv.Serialize()
	got, err := IdentityFromSeed(seed)
	if err != nil {
		t.Fatalf("IdentityFromSeed: %v", err)
	}
	if got != id {
		t.Fatalf("loaded key does not match initialized identity")
	}
}

func TestKeyStore_LoadSeedErrors(t *testing.T) {
	ks := &KeyStore{Directory: t.TempDir()}
	if _, err := ks.LoadSeed("", "", "", ""); err == nil {
		t.Fatalf("expected error with no signer")
	}
	if _, err := ks.LoadSeed("", "../x", "", ""); err == nil {
		t.Fatalf("expected invalid name error")
	}
	if _, err := ks.LoadSeed("zz", "", "", ""); err == nil {
		t.Fatalf("expected hex error")
	}
	if _, err := ks.LoadSeed("", "missing", "", ""); err == nil {
		t.Fatalf("expected not-exist error")
	}
	list, err := (&KeyStore{Directory: filepath.Join(t.TempDir(), "nope")}).ListKeys()
	if err != nil || list != nil {
		t.Fatalf("expected empty list for missing dir, got %v %v", list, err)
	}
}
