// Package merkle replays structured Merkle inclusion proofs.
//
// A proof is an ordered list of nodes. Each node names a left and a right
// leaf and their successor, SHA3-512(left ‖ right). Replay starts at the
// claimed leaf, requires the carried hash to appear as one side of each node,
// and carries the node's successor forward until the claimed root.
package merkle

import (
	"errors"
	"fmt"

	"xdao.co/aqua/ident"
)

// Node is one step of a structured proof.
type Node struct {
	LeftLeaf  ident.Hash `json:"left_leaf"`
	RightLeaf ident.Hash `json:"right_leaf"`
	Successor ident.Hash `json:"successor"`
}

// ErrProofInvalid marks a proof that parses but does not establish inclusion.
// It is a trust failure, not a transient one.
var ErrProofInvalid = errors.New("merkle: proof invalid")

// Reason classifies why a replay failed.
type Reason string

const (
	ReasonNotCarried    Reason = "carried hash is neither left nor right leaf"
	ReasonBadSuccessor  Reason = "successor does not equal H(left ‖ right)"
	ReasonRootMismatch  Reason = "final hash does not equal merkle root"
	ReasonEmptyMismatch Reason = "empty proof and leaf does not equal merkle root"
)

// ProofError reports the failing step of a replay. Step is the node index, or
// len(proof) when the final root comparison failed.
type ProofError struct {
	Step   int
	Reason Reason
}

func (e *ProofError) Error() string {
	return fmt.Sprintf("merkle: proof invalid at step %d: %s", e.Step, e.Reason)
}

func (e *ProofError) Unwrap() error { return ErrProofInvalid }

// Hash returns the successor of a left and right leaf.
func Hash(left, right ident.Hash) ident.Hash {
	return ident.SumConcat(left[:], right[:])
}

// Verify replays proof from leaf and checks that it reduces to root.
// An empty proof is valid only when leaf equals root.
func Verify(leaf ident.Hash, proof []Node, root ident.Hash) error {
	if len(proof) == 0 {
		if leaf != root {
			return &ProofError{Step: 0, Reason: ReasonEmptyMismatch}
		}
		return nil
	}
	carried := leaf
	for i, n := range proof {
		if carried != n.LeftLeaf && carried != n.RightLeaf {
			return &ProofError{Step: i, Reason: ReasonNotCarried}
		}
		if Hash(n.LeftLeaf, n.RightLeaf) != n.Successor {
			return &ProofError{Step: i, Reason: ReasonBadSuccessor}
		}
		carried = n.Successor
	}
	if carried != root {
		return &ProofError{Step: len(proof), Reason: ReasonRootMismatch}
	}
	return nil
}
