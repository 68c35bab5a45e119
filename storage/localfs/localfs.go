// Package localfs is a directory-backed storage.Storage.
//
// Layout under the root directory:
//
//	revisions/<xx>/<hash>.json   one read-only record per revision
//	branches/<genesis>.json      branch index, replaced atomically on append
//	blobs/                       zstd-compressed file payloads keyed by CID
//
// File payloads are stored once in blobs/ and stripped from the revision
// records; Read restores them. The branch context is the genesis hash. List
// returns hashes sorted by their bytes.
//
// A revision becomes visible when its branch index lists it. Records written
// by an append that died before updating the index are invisible to every
// read and are adopted by the next Store of the same revision.
//
// A Store serializes its own writes. Several processes writing to one root
// are not coordinated.
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

const (
	revisionsDir = "revisions"
	branchesDir  = "branches"
	blobsDir     = "blobs"
)

// record is the on-disk form of a stored revision.
type record struct {
	Genesis  ident.Hash      `json:"genesis"`
	FileCID  string          `json:"file_cid,omitempty"`
	Revision json.RawMessage `json:"revision"`
}

type Store struct {
	root   string
	blobs  *Blobs
	mu     sync.Mutex
	notify storage.Notifier
}

var _ storage.Storage[ident.Hash] = (*Store)(nil)

// New opens or creates a store rooted at root.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	for _, dir := range []string{revisionsDir, branchesDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, err
		}
	}
	blobs, err := NewBlobs(filepath.Join(root, blobsDir))
	if err != nil {
		return nil, err
	}
	return &Store{root: root, blobs: blobs}, nil
}

// Blobs returns the payload store.
func (s *Store) Blobs() *Blobs { return s.blobs }

func (s *Store) GetContext(ctx context.Context, h ident.Hash) (ident.Hash, error) {
	if err := ctx.Err(); err != nil {
		return ident.Hash{}, err
	}
	b, err := s.indexedBranch(h)
	if err != nil {
		return ident.Hash{}, err
	}
	return b.Genesis(), nil
}

func (s *Store) Store(ctx context.Context, rev revision.Revision, genesis ident.Hash) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := storage.Canonical(rev)
	if err != nil {
		return err
	}
	h := rev.Hash()

	s.mu.Lock()
	published, err := s.store(rev, raw, h, genesis)
	s.mu.Unlock()
	if err != nil || !published {
		return err
	}
	s.notify.Publish(h, storage.Describe(rev))
	return nil
}

// store writes rev and reports whether it was new. s.mu must be held.
func (s *Store) store(rev revision.Revision, raw []byte, h, genesis ident.Hash) (bool, error) {
	if _, err := os.Stat(s.recordPath(h)); err == nil {
		if err := s.checkSame(h, raw); err != nil {
			return false, err
		}
		return false, s.repairBranch(rev, h)
	}

	var branch revision.Branch[ident.Hash]
	if rev.IsGenesis() {
		genesis = h
		branch = revision.NewBranch(h, h)
	} else {
		b, err := s.readBranch(genesis)
		if err != nil {
			return false, err
		}
		if err := storage.CheckAppend(b, rev); err != nil {
			return false, err
		}
		branch = b.Append(h)
	}

	rec := record{Genesis: genesis}
	stripped := rev
	if rev.Content.File != nil {
		id, err := s.blobs.Put(rev.Content.File.Data)
		if err != nil {
			return false, fmt.Errorf("localfs: store file payload: %w", err)
		}
		rec.FileCID = id.String()
		file := *rev.Content.File
		file.Data = nil
		stripped.Content.File = &file
	}
	body, err := json.Marshal(stripped)
	if err != nil {
		return false, err
	}
	rec.Revision = body
	b, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}

	path := s.recordPath(h)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := writeExclusive(path, b); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, s.checkSame(h, raw)
		}
		return false, err
	}
	if err := s.writeBranch(branch); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) checkSame(h ident.Hash, raw []byte) error {
	existing, err := s.readRevision(h)
	if err != nil {
		return fmt.Errorf("%w: unreadable record %s: %v", storage.ErrImmutable, h, err)
	}
	b, err := storage.Canonical(existing)
	if err != nil {
		return err
	}
	if string(b) != string(raw) {
		return storage.ErrImmutable
	}
	return nil
}

// repairBranch finishes an append whose record was written but whose branch
// index was not.
func (s *Store) repairBranch(rev revision.Revision, h ident.Hash) error {
	rec, err := s.readRecord(h)
	if err != nil {
		return err
	}
	if rev.IsGenesis() {
		_, err := s.readBranch(h)
		if storage.IsNotFound(err) {
			return s.writeBranch(revision.NewBranch(h, h))
		}
		return err
	}
	b, err := s.readBranch(rec.Genesis)
	if err != nil || b.Contains(h) {
		return err
	}
	if err := storage.CheckAppend(b, rev); err != nil {
		return err
	}
	return s.writeBranch(b.Append(h))
}

func (s *Store) Read(ctx context.Context, h ident.Hash) (revision.Revision, error) {
	if err := ctx.Err(); err != nil {
		return revision.Revision{}, err
	}
	rev, err := s.readRevision(h)
	if err != nil {
		return revision.Revision{}, err
	}
	if _, err := s.indexedBranch(h); err != nil {
		return revision.Revision{}, err
	}
	return rev, nil
}

func (s *Store) GetBranch(ctx context.Context, h ident.Hash) (revision.Branch[ident.Hash], error) {
	if err := ctx.Err(); err != nil {
		return revision.Branch[ident.Hash]{}, err
	}
	return s.indexedBranch(h)
}

func (s *Store) List(ctx context.Context) ([]ident.Hash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, branchesDir))
	if err != nil {
		return nil, err
	}
	var out []ident.Hash
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		genesis, err := ident.ParseHash(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		b, err := s.readBranch(genesis)
		if err != nil {
			return nil, err
		}
		out = append(out, b.Hashes...)
	}
	slices.SortFunc(out, ident.Hash.Compare)
	return out, nil
}

func (s *Store) UpdateHandler(ctx context.Context, f storage.UpdateFunc) error {
	return s.notify.Subscribe(ctx, f)
}

// Close ends all UpdateHandler calls with storage.ErrClosed.
func (s *Store) Close() error {
	s.notify.Close()
	return nil
}

func (s *Store) recordPath(h ident.Hash) string {
	hex := h.String()
	return filepath.Join(s.root, revisionsDir, hex[:2], hex+".json")
}

func (s *Store) branchPath(genesis ident.Hash) string {
	return filepath.Join(s.root, branchesDir, genesis.String()+".json")
}

func (s *Store) readRecord(h ident.Hash) (record, error) {
	b, err := os.ReadFile(s.recordPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return record{}, storage.ErrNotFound
		}
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return record{}, fmt.Errorf("localfs: decode record %s: %w", h, err)
	}
	return rec, nil
}

// indexedBranch returns the branch holding h, or ErrNotFound when h has no
// record or its record is not yet listed in the branch index.
func (s *Store) indexedBranch(h ident.Hash) (revision.Branch[ident.Hash], error) {
	rec, err := s.readRecord(h)
	if err != nil {
		return revision.Branch[ident.Hash]{}, err
	}
	b, err := s.readBranch(rec.Genesis)
	if err != nil {
		return revision.Branch[ident.Hash]{}, err
	}
	if !b.Contains(h) {
		return revision.Branch[ident.Hash]{}, storage.ErrNotFound
	}
	return b, nil
}

func (s *Store) readRevision(h ident.Hash) (revision.Revision, error) {
	rec, err := s.readRecord(h)
	if err != nil {
		return revision.Revision{}, err
	}
	var rev revision.Revision
	if err := json.Unmarshal(rec.Revision, &rev); err != nil {
		return revision.Revision{}, fmt.Errorf("localfs: decode revision %s: %w", h, err)
	}
	if rec.FileCID != "" {
		if rev.Content.File == nil {
			return revision.Revision{}, fmt.Errorf("localfs: record %s names a payload but has no file", h)
		}
		id, err := cid.Decode(rec.FileCID)
		if err != nil {
			return revision.Revision{}, fmt.Errorf("%w: %v", storage.ErrInvalidCID, err)
		}
		data, err := s.blobs.Get(id)
		if err != nil {
			return revision.Revision{}, fmt.Errorf("localfs: load payload of %s: %w", h, err)
		}
		rev.Content.File.Data = data
	}
	if rev.Hash() != h {
		return revision.Revision{}, fmt.Errorf("localfs: record %s holds revision %s", h, rev.Hash())
	}
	return rev, nil
}

func (s *Store) readBranch(genesis ident.Hash) (revision.Branch[ident.Hash], error) {
	b, err := os.ReadFile(s.branchPath(genesis))
	if err != nil {
		if os.IsNotExist(err) {
			return revision.Branch[ident.Hash]{}, fmt.Errorf("%w: unknown branch %s", storage.ErrNotFound, genesis)
		}
		return revision.Branch[ident.Hash]{}, err
	}
	var branch revision.Branch[ident.Hash]
	if err := json.Unmarshal(b, &branch); err != nil {
		return revision.Branch[ident.Hash]{}, fmt.Errorf("localfs: decode branch %s: %w", genesis, err)
	}
	if err := branch.Validate(); err != nil {
		return revision.Branch[ident.Hash]{}, fmt.Errorf("localfs: branch %s: %w", genesis, err)
	}
	return branch, nil
}

func (s *Store) writeBranch(b revision.Branch[ident.Hash]) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return writeReplace(s.branchPath(b.Genesis()), data)
}
