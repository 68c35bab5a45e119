package revision

import (
	"fmt"
	"slices"

	"xdao.co/aqua/ident"
)

// Branch is a genesis-rooted chain of revision hashes in insertion order,
// with opaque per-backend metadata.
type Branch[T any] struct {
	Metadata T            `json:"metadata"`
	Hashes   []ident.Hash `json:"hashes"`
}

// NewBranch starts a branch at genesis.
func NewBranch[T any](meta T, genesis ident.Hash) Branch[T] {
	return Branch[T]{Metadata: meta, Hashes: []ident.Hash{genesis}}
}

// Append returns a branch with h added at the tail. The receiver is not
// modified and existing entries keep their positions.
func (b Branch[T]) Append(h ident.Hash) Branch[T] {
	hashes := make([]ident.Hash, len(b.Hashes), len(b.Hashes)+1)
	copy(hashes, b.Hashes)
	return Branch[T]{Metadata: b.Metadata, Hashes: append(hashes, h)}
}

// Genesis returns the first hash, or the zero Hash for an empty branch.
func (b Branch[T]) Genesis() ident.Hash {
	if len(b.Hashes) == 0 {
		return ident.Hash{}
	}
	return b.Hashes[0]
}

// Tail returns the most recent hash, or the zero Hash for an empty branch.
func (b Branch[T]) Tail() ident.Hash {
	if len(b.Hashes) == 0 {
		return ident.Hash{}
	}
	return b.Hashes[len(b.Hashes)-1]
}

func (b Branch[T]) Len() int { return len(b.Hashes) }

func (b Branch[T]) IndexOf(h ident.Hash) int { return slices.Index(b.Hashes, h) }

func (b Branch[T]) Contains(h ident.Hash) bool { return b.IndexOf(h) >= 0 }

// Validate reports an empty branch as invalid.
func (b Branch[T]) Validate() error {
	if len(b.Hashes) == 0 {
		return newError(KindEmptyBranch, "branch has no hashes")
	}
	return nil
}

// WithMetadata returns b's hashes under different metadata.
func WithMetadata[T, U any](b Branch[T], meta U) Branch[U] {
	return Branch[U]{Metadata: meta, Hashes: slices.Clone(b.Hashes)}
}

// VerifyChain checks that revs link in order: the first is a genesis
// revision and each later one names its predecessor's hash.
func VerifyChain(revs []Revision) error {
	if len(revs) == 0 {
		return newError(KindEmptyBranch, "no revisions")
	}
	if !revs[0].IsGenesis() {
		return newError(KindLinkage, "first revision is not a genesis revision")
	}
	for i := 1; i < len(revs); i++ {
		prev := revs[i].Metadata.PreviousVerificationHash
		if prev == nil || *prev != revs[i-1].Hash() {
			return newError(KindLinkage, fmt.Sprintf("revision %d does not follow revision %d", i, i-1))
		}
	}
	return nil
}
