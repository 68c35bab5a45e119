package testkit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

// NewStorage constructs a fresh, empty Storage for a test.
// The returned Storage MUST be isolated from other tests.
type NewStorage[C any] func(t *testing.T) storage.Storage[C]

func RunStorageConformance[C any](t *testing.T, newStorage NewStorage[C]) {
	t.Helper()

	t.Run("NotFound", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		h := ident.Sum([]byte("missing"))
		if _, err := s.Read(ctx, h); !storage.IsNotFound(err) {
			t.Fatalf("Read missing: got err=%v want ErrNotFound", err)
		}
		if _, err := s.GetContext(ctx, h); !storage.IsNotFound(err) {
			t.Fatalf("GetContext missing: got err=%v want ErrNotFound", err)
		}
		if _, err := s.GetBranch(ctx, h); !storage.IsNotFound(err) {
			t.Fatalf("GetBranch missing: got err=%v want ErrNotFound", err)
		}
		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("List on empty storage returned %d hashes", len(list))
		}
	})

	t.Run("GenesisRoundTrip", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		g := Chain(t, "genesis", 1)[0]

		var zero C
		if err := s.Store(ctx, g, zero); err != nil {
			t.Fatalf("Store genesis failed: %v", err)
		}
		got, err := s.Read(ctx, g.Hash())
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		assertSame(t, got, g)
		if err := got.Verify(nil); err != nil {
			t.Fatalf("read revision does not verify: %v", err)
		}

		if _, err := s.GetContext(ctx, g.Hash()); err != nil {
			t.Fatalf("GetContext failed: %v", err)
		}
		b, err := s.GetBranch(ctx, g.Hash())
		if err != nil {
			t.Fatalf("GetBranch failed: %v", err)
		}
		if !slices.Equal(b.Hashes, []ident.Hash{g.Hash()}) {
			t.Fatalf("GetBranch hashes mismatch: %v", b.Hashes)
		}
		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if !slices.Equal(list, []ident.Hash{g.Hash()}) {
			t.Fatalf("List mismatch: %v", list)
		}
	})

	t.Run("AppendChain", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		revs := Chain(t, "chain", 4)
		storeChain(t, s, revs)

		want := make([]ident.Hash, len(revs))
		for i, r := range revs {
			want[i] = r.Hash()
		}
		for _, r := range revs {
			b, err := s.GetBranch(ctx, r.Hash())
			if err != nil {
				t.Fatalf("GetBranch failed: %v", err)
			}
			if !slices.Equal(b.Hashes, want) {
				t.Fatalf("GetBranch(%s) hashes mismatch", r.Hash())
			}
			got, err := s.Read(ctx, r.Hash())
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			assertSame(t, got, r)
		}

		read := make([]revision.Revision, len(want))
		for i, h := range want {
			r, err := s.Read(ctx, h)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			read[i] = r
		}
		if err := revision.VerifyChain(read); err != nil {
			t.Fatalf("stored chain does not verify: %v", err)
		}

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != len(want) {
			t.Fatalf("List returned %d hashes, want %d", len(list), len(want))
		}
		for _, h := range want {
			if !slices.Contains(list, h) {
				t.Fatalf("List missing %s", h)
			}
		}
	})

	t.Run("SeparateBranches", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		a := Chain(t, "branch-a", 2)
		b := Chain(t, "branch-b", 3)
		storeChain(t, s, a)
		storeChain(t, s, b)

		ba, err := s.GetBranch(ctx, a[1].Hash())
		if err != nil {
			t.Fatalf("GetBranch failed: %v", err)
		}
		bb, err := s.GetBranch(ctx, b[0].Hash())
		if err != nil {
			t.Fatalf("GetBranch failed: %v", err)
		}
		if ba.Len() != 2 || bb.Len() != 3 {
			t.Fatalf("branch lengths: got %d and %d want 2 and 3", ba.Len(), bb.Len())
		}
		if ba.Genesis() != a[0].Hash() || bb.Genesis() != b[0].Hash() {
			t.Fatalf("branch genesis mismatch")
		}
	})

	t.Run("StoreIdempotent", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		revs := Chain(t, "idem", 2)
		storeChain(t, s, revs)

		c, err := s.GetContext(ctx, revs[0].Hash())
		if err != nil {
			t.Fatalf("GetContext failed: %v", err)
		}
		if err := s.Store(ctx, revs[1], c); err != nil {
			t.Fatalf("re-Store failed: %v", err)
		}
		var zero C
		if err := s.Store(ctx, revs[0], zero); err != nil {
			t.Fatalf("re-Store genesis failed: %v", err)
		}
		b, err := s.GetBranch(ctx, revs[0].Hash())
		if err != nil {
			t.Fatalf("GetBranch failed: %v", err)
		}
		if b.Len() != 2 {
			t.Fatalf("re-Store changed branch length to %d", b.Len())
		}
		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("re-Store changed List length to %d", len(list))
		}
	})

	t.Run("Immutable", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		g := Chain(t, "immutable", 1)[0]
		var zero C
		if err := s.Store(ctx, g, zero); err != nil {
			t.Fatalf("Store failed: %v", err)
		}

		// Same verification hash, different encoding.
		unsigned := g
		unsigned.Signature = nil
		if err := s.Store(ctx, unsigned, zero); !errors.Is(err, storage.ErrImmutable) {
			t.Fatalf("Store of different revision under same hash: got err=%v want ErrImmutable", err)
		}
		got, err := s.Read(ctx, g.Hash())
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		assertSame(t, got, g)
	})

	t.Run("AppendConflict", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		revs := Chain(t, "conflict", 2)
		storeChain(t, s, revs)
		c, err := s.GetContext(ctx, revs[0].Hash())
		if err != nil {
			t.Fatalf("GetContext failed: %v", err)
		}

		fork := Child(revs[0], "fork")
		if err := s.Store(ctx, fork, c); !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Store of fork: got err=%v want ErrConflict", err)
		}
		if _, err := s.Read(ctx, fork.Hash()); !storage.IsNotFound(err) {
			t.Fatalf("rejected fork was stored: err=%v", err)
		}

		orphan := Child(Chain(t, "elsewhere", 1)[0], "orphan")
		if err := s.Store(ctx, orphan, c); !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Store of orphan: got err=%v want ErrConflict", err)
		}

		var zero C
		next := Child(revs[1], "next")
		if err := s.Store(ctx, next, zero); !storage.IsNotFound(err) {
			t.Fatalf("Store with zero context: got err=%v want ErrNotFound", err)
		}
		if err := s.Store(ctx, next, c); err != nil {
			t.Fatalf("Store of tail child failed: %v", err)
		}
	})

	t.Run("ConcurrentAppendsToSameTail", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		g := Chain(t, "race", 1)[0]
		var zero C
		if err := s.Store(ctx, g, zero); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		c, err := s.GetContext(ctx, g.Hash())
		if err != nil {
			t.Fatalf("GetContext failed: %v", err)
		}

		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Store(ctx, Child(g, fmt.Sprintf("contender %d", i)), c)
			}(i)
		}
		wg.Wait()

		won := 0
		for i, err := range errs {
			switch {
			case err == nil:
				won++
			case errors.Is(err, storage.ErrConflict):
			default:
				t.Fatalf("contender %d: unexpected error %v", i, err)
			}
		}
		if won != 1 {
			t.Fatalf("%d contenders won, want exactly 1", won)
		}
		b, err := s.GetBranch(ctx, g.Hash())
		if err != nil {
			t.Fatalf("GetBranch failed: %v", err)
		}
		if b.Len() != 2 {
			t.Fatalf("branch length %d, want 2", b.Len())
		}
	})

	t.Run("ConcurrentBranches", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		const n = 6
		chains := make([][]revision.Revision, n)
		for i := range chains {
			chains[i] = Chain(t, fmt.Sprintf("parallel-%d", i), 3)
		}

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := range chains {
			wg.Add(1)
			go func(revs []revision.Revision) {
				defer wg.Done()
				if err := storeChainErr(ctx, s, revs); err != nil {
					errs <- err
				}
			}(chains[i])
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent store failed: %v", err)
		}

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != n*3 {
			t.Fatalf("List returned %d hashes, want %d", len(list), n*3)
		}
		for _, revs := range chains {
			b, err := s.GetBranch(ctx, revs[2].Hash())
			if err != nil {
				t.Fatalf("GetBranch failed: %v", err)
			}
			if b.Len() != 3 || b.Genesis() != revs[0].Hash() {
				t.Fatalf("branch of %s corrupted", revs[0].Metadata.DomainID)
			}
		}
	})

	t.Run("UpdateHandler", func(t *testing.T) {
		s := newStorage(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		type ev struct {
			hash ident.Hash
			desc string
		}
		events := make(chan ev, 256)
		errc := make(chan error, 1)
		go func() {
			errc <- s.UpdateHandler(ctx, func(h ident.Hash, desc string) {
				select {
				case events <- ev{h, desc}:
				default:
				}
			})
		}()

		// Registration is asynchronous: store markers until one is observed.
		var zero C
		deadline := time.After(10 * time.Second)
		for i := 0; ; i++ {
			marker := Chain(t, fmt.Sprintf("marker-%d", i), 1)[0]
			if err := s.Store(context.Background(), marker, zero); err != nil {
				t.Fatalf("Store marker failed: %v", err)
			}
			select {
			case <-events:
			case <-time.After(20 * time.Millisecond):
				continue
			case <-deadline:
				t.Fatalf("timed out waiting for the first event")
			}
			break
		}

		revs := Chain(t, "watched", 2)
		storeChain(t, s, revs)
		want := []ev{{revs[0].Hash(), storage.EventGenesis}, {revs[1].Hash(), storage.EventAppend}}
		for len(want) > 0 {
			select {
			case e := <-events:
				if e.hash != want[0].hash {
					// Late marker events may still be in flight.
					continue
				}
				if e.desc != want[0].desc {
					t.Fatalf("event for %s: got description %q want %q", e.hash, e.desc, want[0].desc)
				}
				want = want[1:]
			case <-deadline:
				t.Fatalf("timed out waiting for events")
			}
		}

		cancel()
		select {
		case err := <-errc:
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("UpdateHandler returned %v, want context.Canceled", err)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("UpdateHandler did not return after cancel")
		}
	})
}

func storeChain[C any](t *testing.T, s storage.Storage[C], revs []revision.Revision) {
	t.Helper()
	if err := storeChainErr(context.Background(), s, revs); err != nil {
		t.Fatalf("%v", err)
	}
}

func storeChainErr[C any](ctx context.Context, s storage.Storage[C], revs []revision.Revision) error {
	var c C
	for i, r := range revs {
		if err := s.Store(ctx, r, c); err != nil {
			return fmt.Errorf("Store(%d) failed: %w", i, err)
		}
		if i == 0 {
			var err error
			if c, err = s.GetContext(ctx, r.Hash()); err != nil {
				return fmt.Errorf("GetContext failed: %w", err)
			}
		}
	}
	return nil
}

func assertSame(t *testing.T, got, want revision.Revision) {
	t.Helper()
	same, err := storage.SameRevision(got, want)
	if err != nil {
		t.Fatalf("SameRevision failed: %v", err)
	}
	if !same {
		t.Fatalf("revision %s changed in storage", want.Hash())
	}
}
