package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/aqua/cidutil"
	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/registry"
	"xdao.co/aqua/storage/testkit"
)

func newStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLocalFS_StorageConformance(t *testing.T) {
	testkit.RunStorageConformance(t, func(t *testing.T) storage.Storage[ident.Hash] {
		return newStore(t, t.TempDir())
	})
}

func TestLocalFS_BlobConformance(t *testing.T) {
	testkit.RunCASConformance(t, testkit.CASHarness{
		New: func(t *testing.T) storage.CAS {
			t.Helper()
			blobs, err := NewBlobs(t.TempDir())
			if err != nil {
				t.Fatalf("NewBlobs failed: %v", err)
			}
			return blobs
		},
		Plant: func(t *testing.T, cas storage.CAS, id cid.Cid, data []byte) {
			t.Helper()
			blobs := cas.(*Blobs)
			path := blobs.pathFor(id)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatalf("MkdirAll: %v", err)
			}
			if err := writeExclusive(path, zstdEncoder.EncodeAll(data, nil)); err != nil {
				t.Fatalf("plant blob: %v", err)
			}
		},
	})
}

func TestLocalFS_RejectMutationByOverwrite(t *testing.T) {
	blobs, err := NewBlobs(t.TempDir())
	if err != nil {
		t.Fatalf("NewBlobs failed: %v", err)
	}

	orig := []byte("original")
	id, err := blobs.Put(orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored object out-of-band.
	path := blobs.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, zstdEncoder.EncodeAll([]byte("corrupted"), nil), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Get must detect hash mismatch.
	_, err = blobs.Get(id)
	if err != storage.ErrCIDMismatch {
		t.Fatalf("Get mismatch: got %v want %v", err, storage.ErrCIDMismatch)
	}

	// Put must not "repair" or overwrite the corrupted object.
	_, err = blobs.Put(orig)
	if err != storage.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, storage.ErrImmutable)
	}

	wantID, err := cidutil.CIDv1RawSHA3512(orig)
	if err != nil {
		t.Fatalf("CIDv1RawSHA3512 failed: %v", err)
	}
	if id != wantID {
		t.Fatalf("unexpected CID: got %s want %s", id, wantID)
	}
}

func TestLocalFS_PayloadStoredOnce(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir)
	ctx := context.Background()
	g := testkit.Chain(t, "payload", 1)[0]
	if err := s.Store(ctx, g, ident.Hash{}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	rec, err := os.ReadFile(s.recordPath(g.Hash()))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(rec), g.Content.File.Data.String()) {
		t.Fatalf("record still carries the file payload")
	}
	if !s.Blobs().Has(g.Content.File.CID()) {
		t.Fatalf("payload missing from blob store")
	}

	info, err := os.Stat(s.recordPath(g.Hash()))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm()&0o222 != 0 {
		t.Fatalf("record is writable: %v", info.Mode())
	}
}

func TestLocalFS_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	revs := testkit.Chain(t, "reopen", 3)

	s := newStore(t, dir)
	if err := s.Store(ctx, revs[0], ident.Hash{}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Store(ctx, revs[1], revs[0].Hash()); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	reopened := newStore(t, dir)
	if err := reopened.Store(ctx, revs[2], revs[0].Hash()); err != nil {
		t.Fatalf("Store after reopen failed: %v", err)
	}
	b, err := reopened.GetBranch(ctx, revs[2].Hash())
	if err != nil {
		t.Fatalf("GetBranch failed: %v", err)
	}
	if b.Len() != 3 || b.Tail() != revs[2].Hash() {
		t.Fatalf("branch after reopen: %v", b.Hashes)
	}
	got, err := reopened.Read(ctx, revs[0].Hash())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := got.Verify(nil); err != nil {
		t.Fatalf("reopened genesis does not verify: %v", err)
	}
}

func TestLocalFS_ListSortedByHash(t *testing.T) {
	s := newStore(t, t.TempDir())
	ctx := context.Background()
	for _, d := range []string{"a", "b", "c", "d"} {
		if err := s.Store(ctx, testkit.Chain(t, d, 1)[0], ident.Hash{}); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Compare(list[i]) >= 0 {
			t.Fatalf("List not sorted at %d", i)
		}
	}
}

func TestLocalFS_RepairsInterruptedAppend(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir)
	ctx := context.Background()
	revs := testkit.Chain(t, "interrupted", 2)
	if err := s.Store(ctx, revs[0], ident.Hash{}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Store(ctx, revs[1], revs[0].Hash()); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// Roll the branch index back as if the process died after the record.
	if err := s.writeBranch(revision.NewBranch(revs[0].Hash(), revs[0].Hash())); err != nil {
		t.Fatalf("writeBranch failed: %v", err)
	}
	if _, err := s.GetBranch(ctx, revs[1].Hash()); !storage.IsNotFound(err) {
		t.Fatalf("half-finished append visible: err=%v", err)
	}
	if _, err := s.Read(ctx, revs[1].Hash()); !storage.IsNotFound(err) {
		t.Fatalf("Read of unindexed revision: err=%v", err)
	}
	if _, err := s.GetContext(ctx, revs[1].Hash()); !storage.IsNotFound(err) {
		t.Fatalf("GetContext of unindexed revision: err=%v", err)
	}
	if got := listed(t, s); len(got) != 1 || got[0] != revs[0].Hash() {
		t.Fatalf("List shows unindexed revision: %v", got)
	}

	if err := s.Store(ctx, revs[1], revs[0].Hash()); err != nil {
		t.Fatalf("re-Store failed: %v", err)
	}
	b, err := s.GetBranch(ctx, revs[1].Hash())
	if err != nil {
		t.Fatalf("GetBranch failed: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("branch not repaired: %v", b.Hashes)
	}
	if _, err := s.Read(ctx, revs[1].Hash()); err != nil {
		t.Fatalf("Read after repair: %v", err)
	}
	if g, err := s.GetContext(ctx, revs[1].Hash()); err != nil || g != revs[0].Hash() {
		t.Fatalf("GetContext after repair: got %v err=%v", g, err)
	}
	if got := listed(t, s); len(got) != 2 {
		t.Fatalf("List after repair: %v", got)
	}
}

func listed(t *testing.T, s *Store) []ident.Hash {
	t.Helper()
	hs, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	return hs
}

func TestLocalFS_CorruptRecord(t *testing.T) {
	s := newStore(t, t.TempDir())
	ctx := context.Background()
	revs := testkit.Chain(t, "corrupt", 2)
	if err := s.Store(ctx, revs[0], ident.Hash{}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// A record filed under the wrong hash is detected on read.
	other := s.recordPath(revs[1].Hash())
	if err := os.MkdirAll(filepath.Dir(other), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	b, err := os.ReadFile(s.recordPath(revs[0].Hash()))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if err := os.WriteFile(other, b, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := s.Read(ctx, revs[1].Hash()); err == nil || storage.IsNotFound(err) {
		t.Fatalf("misfiled record accepted: err=%v", err)
	}
	if err := s.Store(ctx, revs[1], revs[0].Hash()); !errors.Is(err, storage.ErrImmutable) {
		t.Fatalf("Store over misfiled record: got err=%v want ErrImmutable", err)
	}
}

func TestRegistry_OpensLocalFS(t *testing.T) {
	if _, _, err := registry.OpenWithConfig("localfs", registry.UsageCLI, nil); err == nil {
		t.Fatalf("expected error without localfs-dir")
	}
	dir := t.TempDir()
	s, closeFn, err := registry.OpenWithConfig("localfs", registry.UsageCLI, map[string]string{"localfs-dir": dir})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	defer closeFn()
	g := testkit.Chain(t, "registry", 1)[0]
	if err := s.Store(context.Background(), g, ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, branchesDir, g.Hash().String()+".json")); err != nil {
		t.Fatalf("branch index missing: %v", err)
	}
}
