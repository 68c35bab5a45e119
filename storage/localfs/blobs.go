package localfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	"github.com/klauspost/compress/zstd"

	"xdao.co/aqua/cidutil"
	"xdao.co/aqua/storage"
)

// Encoder and decoder are safe for concurrent use and shared by every Blobs.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("localfs: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("localfs: zstd decoder initialization failed: " + err.Error())
	}
}

// Blobs is a directory-backed storage.CAS for file payloads.
//
// Objects are zstd-compressed on disk, written once with read-only
// permissions and keyed by the CID of their uncompressed bytes.
type Blobs struct {
	root string
}

var _ storage.CAS = (*Blobs)(nil)

// NewBlobs constructs a blob store rooted at root, creating it if needed.
func NewBlobs(root string) (*Blobs, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Blobs{root: root}, nil
}

func (c *Blobs) Put(bytes []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA3512(bytes)
	if err != nil {
		return cid.Undef, err
	}

	path := c.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}
	err = writeExclusive(path, zstdEncoder.EncodeAll(bytes, nil))
	if errors.Is(err, os.ErrExist) {
		existing, rerr := c.Get(id)
		if rerr != nil || string(existing) != string(bytes) {
			// An unreadable or corrupted object is never repaired in place.
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}
	if err != nil {
		return cid.Undef, err
	}
	return id, nil
}

func (c *Blobs) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	compressed, err := os.ReadFile(c.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	b, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decompress: %v", storage.ErrCIDMismatch, err)
	}
	got, err := cidutil.CIDv1RawSHA3512(b)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *Blobs) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(c.pathFor(id))
	return err == nil
}

func (c *Blobs) pathFor(id cid.Cid) string {
	s := id.String()
	// CID strings share a long prefix, so fan out on the last characters.
	if len(s) < 2 {
		return filepath.Join(c.root, s)
	}
	return filepath.Join(c.root, s[len(s)-2:], s)
}

// writeExclusive publishes b at path atomically and fails with os.ErrExist
// when path is already present. The file is left read-only.
func writeExclusive(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o444); err != nil {
		return err
	}
	return os.Link(tmpName, path)
}

// writeReplace atomically replaces path with b.
func writeReplace(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
