package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
)

// Storage persists revisions and the branches they form.
//
// C is the backend's opaque per-branch context (a genesis hash, a row id, a
// file name). Callers obtain it from GetContext and hand it back to Store;
// this layer never interprets it.
//
// Contract:
//   - Every method is safe for concurrent use.
//   - GetContext, Read and GetBranch return ErrNotFound for unknown hashes.
//   - Store of a genesis revision starts a new branch and ignores c. Store of
//     any other revision appends it to the branch named by c, whose tail must
//     be the revision's previous_verification_hash (ErrConflict otherwise).
//   - Store is idempotent: storing an already stored revision again succeeds.
//     A different revision under a stored hash is ErrImmutable.
//   - A successful Store is visible to every later call from any caller.
//   - List order is backend-defined and documented by each backend.
//   - UpdateHandler calls f for every Store that completes after the
//     subscription is registered. It blocks until ctx is done (returning
//     ctx.Err()) or the backend fails (returning that error). It never
//     returns nil.
type Storage[C any] interface {
	GetContext(ctx context.Context, h ident.Hash) (C, error)
	Store(ctx context.Context, rev revision.Revision, c C) error
	Read(ctx context.Context, h ident.Hash) (revision.Revision, error)
	GetBranch(ctx context.Context, h ident.Hash) (revision.Branch[C], error)
	List(ctx context.Context) ([]ident.Hash, error)
	UpdateHandler(ctx context.Context, f UpdateFunc) error
}

// UpdateFunc receives the hash of each newly stored revision and a short
// description of the event.
type UpdateFunc func(h ident.Hash, description string)

// Event descriptions passed to UpdateFunc.
const (
	EventGenesis = "genesis"
	EventAppend  = "append"
)

// Describe returns the event description for storing rev.
func Describe(rev revision.Revision) string {
	if rev.IsGenesis() {
		return EventGenesis
	}
	return EventAppend
}

// CheckAppend applies the append rule: rev must name b's tail as its
// predecessor.
func CheckAppend[C any](b revision.Branch[C], rev revision.Revision) error {
	prev := rev.Metadata.PreviousVerificationHash
	if prev == nil {
		return fmt.Errorf("%w: genesis revision cannot be appended", ErrConflict)
	}
	if b.Len() == 0 || *prev != b.Tail() {
		return fmt.Errorf("%w: previous revision %s is not the branch tail", ErrConflict, prev)
	}
	return nil
}

// Canonical returns the canonical JSON encoding of rev, the form backends
// compare to decide whether a repeated Store is idempotent.
func Canonical(rev revision.Revision) ([]byte, error) {
	return json.Marshal(rev)
}

// SameRevision reports whether a and b encode identically.
func SameRevision(a, b revision.Revision) (bool, error) {
	ab, err := Canonical(a)
	if err != nil {
		return false, err
	}
	bb, err := Canonical(b)
	if err != nil {
		return false, err
	}
	return string(ab) == string(bb), nil
}
