package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/registry"
	"xdao.co/aqua/storage/testkit"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aqua.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSQLite_StorageConformance(t *testing.T) {
	testkit.RunStorageConformance(t, func(t *testing.T) storage.Storage[int64] {
		s, _ := openTemp(t)
		return s
	})
}

func TestSQLite_MemoryConformance(t *testing.T) {
	testkit.RunStorageConformance(t, func(t *testing.T) storage.Storage[int64] {
		s, err := Open(":memory:")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLite_StringContextConformance(t *testing.T) {
	testkit.RunStorageConformance(t, func(t *testing.T) storage.Storage[string] {
		s, _ := openTemp(t)
		return storage.Encode[int64](s, storage.Int64Codec{})
	})
}

func TestSQLite_ContextIsBranchRowID(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	a := testkit.Chain(t, "a", 2)
	b := testkit.Chain(t, "b", 1)

	if err := s.Store(ctx, a[0], 0); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Store(ctx, b[0], 0); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Store(ctx, a[1], 1); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Store(ctx, testkit.Child(b[0], "x"), 1); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("append to wrong branch: got err=%v want ErrConflict", err)
	}

	for h, want := range map[ident.Hash]int64{a[1].Hash(): 1, b[0].Hash(): 2} {
		br, err := s.GetBranch(ctx, h)
		if err != nil {
			t.Fatalf("GetBranch failed: %v", err)
		}
		if br.Metadata != want {
			t.Fatalf("branch of %s has id %d, want %d", h, br.Metadata, want)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 || list[0] != a[0].Hash() || list[1] != b[0].Hash() || list[2] != a[1].Hash() {
		t.Fatalf("List not in insertion order")
	}
}

func TestSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	revs := testkit.Chain(t, "reopen", 2)
	s, path := openTemp(t)
	if err := s.Store(ctx, revs[0], 0); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reopened.Close()
	id, err := reopened.GetContext(ctx, revs[0].Hash())
	if err != nil {
		t.Fatalf("GetContext failed: %v", err)
	}
	if err := reopened.Store(ctx, revs[1], id); err != nil {
		t.Fatalf("Store after reopen failed: %v", err)
	}
	got, err := reopened.Read(ctx, revs[0].Hash())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := got.Verify(nil); err != nil {
		t.Fatalf("reopened genesis does not verify: %v", err)
	}
}

func TestRegistry_OpensSQLite(t *testing.T) {
	if _, _, err := registry.OpenWithConfig("sqlite", registry.UsageDaemon, nil); err == nil {
		t.Fatalf("expected error without sqlite-path")
	}
	s, closeFn, err := registry.OpenWithConfig("sqlite", registry.UsageDaemon, map[string]string{"sqlite-path": ":memory:"})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	defer closeFn()
	g := testkit.Chain(t, "registry", 1)[0]
	if err := s.Store(context.Background(), g, ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	c, err := s.GetContext(context.Background(), g.Hash())
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if c != "1" {
		t.Fatalf("context %q, want 1", c)
	}
}
