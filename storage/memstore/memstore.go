// Package memstore is an in-memory storage.Storage keyed by genesis hash.
//
// The branch context is the branch's genesis hash. List returns hashes in the
// order they were first stored. Contents are lost when the process exits.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

// Revisions are kept in canonical JSON so callers never share memory with
// the store.
type entry struct {
	raw     []byte
	genesis ident.Hash
}

// Store is safe for concurrent use. The zero value is not usable; call New.
type Store struct {
	mu       sync.RWMutex
	revs     map[ident.Hash]entry
	branches map[ident.Hash]revision.Branch[ident.Hash]
	order    []ident.Hash
	notify   storage.Notifier
}

var _ storage.Storage[ident.Hash] = (*Store)(nil)

func New() *Store {
	return &Store{
		revs:     make(map[ident.Hash]entry),
		branches: make(map[ident.Hash]revision.Branch[ident.Hash]),
	}
}

func (s *Store) GetContext(ctx context.Context, h ident.Hash) (ident.Hash, error) {
	if err := ctx.Err(); err != nil {
		return ident.Hash{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.revs[h]
	if !ok {
		return ident.Hash{}, storage.ErrNotFound
	}
	return e.genesis, nil
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
	if existing, ok := s.revs[h]; ok {
		s.mu.Unlock()
		if string(existing.raw) != string(raw) {
			return storage.ErrImmutable
		}
		return nil
	}

	if rev.IsGenesis() {
		genesis = h
		s.branches[h] = revision.NewBranch(h, h)
	} else {
		b, ok := s.branches[genesis]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: unknown branch %s", storage.ErrNotFound, genesis)
		}
		if err := storage.CheckAppend(b, rev); err != nil {
			s.mu.Unlock()
			return err
		}
		s.branches[genesis] = b.Append(h)
	}
	s.revs[h] = entry{raw: raw, genesis: genesis}
	s.order = append(s.order, h)
	s.mu.Unlock()

	s.notify.Publish(h, storage.Describe(rev))
	return nil
}

func (s *Store) Read(ctx context.Context, h ident.Hash) (revision.Revision, error) {
	if err := ctx.Err(); err != nil {
		return revision.Revision{}, err
	}
	s.mu.RLock()
	e, ok := s.revs[h]
	s.mu.RUnlock()
	if !ok {
		return revision.Revision{}, storage.ErrNotFound
	}
	var rev revision.Revision
	if err := json.Unmarshal(e.raw, &rev); err != nil {
		return revision.Revision{}, err
	}
	return rev, nil
}

func (s *Store) GetBranch(ctx context.Context, h ident.Hash) (revision.Branch[ident.Hash], error) {
	if err := ctx.Err(); err != nil {
		return revision.Branch[ident.Hash]{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.revs[h]
	if !ok {
		return revision.Branch[ident.Hash]{}, storage.ErrNotFound
	}
	b := s.branches[e.genesis]
	return revision.WithMetadata(b, b.Metadata), nil
}

func (s *Store) List(ctx context.Context) ([]ident.Hash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ident.Hash(nil), s.order...), nil
}

func (s *Store) UpdateHandler(ctx context.Context, f storage.UpdateFunc) error {
	return s.notify.Subscribe(ctx, f)
}

// Subscribers returns the number of active UpdateHandler calls.
func (s *Store) Subscribers() int { return s.notify.Subscribers() }

// Close ends all UpdateHandler calls with storage.ErrClosed.
func (s *Store) Close() error {
	s.notify.Close()
	return nil
}
