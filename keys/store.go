package keys

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyStore is a local-first secp256k1 key store.
//
// EXPERIMENTAL: this filesystem layout may change in minor releases.
//
// Layout:
//
//	<Directory>/<name>/root.key
//	<Directory>/<name>/roles/<role>.key
//
// Each file holds one hex-encoded 32-byte seed and is created with mode 0600.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Name  string
	Roles []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".aqua", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootKeyPath(name string) string {
	return filepath.Join(ks.Directory, name, "root.key")
}

func (ks *KeyStore) roleKeyPath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".key")
}

func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	if c, ok := firstInvalid(name); !ok {
		return fmt.Errorf("invalid character %q in key name", c)
	}
	return nil
}

func CheckRole(role string) error {
	if role == "" {
		return errors.New("role cannot be empty")
	}
	if c, ok := firstInvalid(role); !ok {
		return fmt.Errorf("invalid character %q in role", c)
	}
	return nil
}

func firstInvalid(s string) (rune, bool) {
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return c, false
	}
	return 0, true
}

// ParseSeedHex parses a hex seed as written by the key store. Surrounding
// whitespace and a 0x prefix are tolerated since seed files are hand-editable.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", SeedSize, len(data))
	}
	if !validScalar(data) {
		return nil, errors.New("seed is not a valid secp256k1 scalar")
	}
	return data, nil
}

// NewSeed returns a fresh random seed.
func NewSeed() ([]byte, error) {
	priv, err := secp256k1.GeneratePrivateKeyFromRand(rand.Reader)
	if err != nil {
		return nil, err
	}
	return priv.Serialize(), nil
}

func (ks *KeyStore) saveSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// InitializeRootKey writes seed as the root key for name. A nil seed
// generates a fresh one.
func (ks *KeyStore) InitializeRootKey(name string, seed []byte, overwrite bool) (Identity, string, error) {
	if err := CheckKeyName(name); err != nil {
		return Identity{}, "", err
	}
	if seed == nil {
		var err error
		if seed, err = NewSeed(); err != nil {
			return Identity{}, "", err
		}
	}
	id, err := IdentityFromSeed(seed)
	if err != nil {
		return Identity{}, "", err
	}
	path := ks.rootKeyPath(name)
	if err := ks.saveSeed(path, seed, overwrite); err != nil {
		return Identity{}, "", err
	}
	return id, path, nil
}

func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (Identity, string, error) {
	if err := CheckKeyName(from); err != nil {
		return Identity{}, "", err
	}
	if err := CheckRole(role); err != nil {
		return Identity{}, "", err
	}
	rootSeed, err := ks.loadSeed(ks.rootKeyPath(from))
	if err != nil {
		return Identity{}, "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return Identity{}, "", err
	}
	id, err := IdentityFromSeed(roleSeed)
	if err != nil {
		return Identity{}, "", err
	}
	path := ks.roleKeyPath(from, role)
	if err := ks.saveSeed(path, roleSeed, overwrite); err != nil {
		return Identity{}, "", err
	}
	return id, path, nil
}

// ExportKey returns the public identity of a stored key. An empty role
// selects the root key.
func (ks *KeyStore) ExportKey(name, role string) (Identity, error) {
	seed, err := ks.LoadSeed("", name, role, "")
	if err != nil {
		return Identity{}, err
	}
	return IdentityFromSeed(seed)
}

// LoadSeed resolves a signing seed from, in order: an explicit hex seed, a
// key file path, or a stored key name (and optional role).
func (ks *KeyStore) LoadSeed(seedHex, name, role, keyFile string) ([]byte, error) {
	if seedHex != "" {
		return ParseSeedHex(seedHex)
	}
	if keyFile != "" {
		return ks.loadSeed(keyFile)
	}
	if name != "" {
		if err := CheckKeyName(name); err != nil {
			return nil, err
		}
		if role == "" {
			return ks.loadSeed(ks.rootKeyPath(name))
		}
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		return ks.loadSeed(ks.roleKeyPath(name, role))
	}
	return nil, errors.New("no signer provided")
}

// LoadPrivateKey is LoadSeed followed by PrivateKeyFromSeed.
func (ks *KeyStore) LoadPrivateKey(seedHex, name, role, keyFile string) (*secp256k1.PrivateKey, error) {
	seed, err := ks.LoadSeed(seedHex, name, role, keyFile)
	if err != nil {
		return nil, err
	}
	return PrivateKeyFromSeed(seed)
}

func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []KeyEntry
	for _, name := range names {
		roleEntries, rerr := os.ReadDir(filepath.Join(ks.Directory, name, "roles"))
		var roles []string
		if rerr == nil {
			for _, re := range roleEntries {
				if re.IsDir() {
					continue
				}
				if r, ok := strings.CutSuffix(re.Name(), ".key"); ok {
					roles = append(roles, r)
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Name: name, Roles: roles})
	}
	return result, nil
}
