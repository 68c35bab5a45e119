package merkle

import (
	"errors"

	"xdao.co/aqua/ident"
)

// Tree is a binary Merkle tree over an ordered leaf set.
type Tree struct {
	levels [][]ident.Hash
}

// Build constructs the tree for leaves. A level with an odd number of nodes
// pairs its last node with itself.
func Build(leaves []ident.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, errors.New("merkle: no leaves")
	}
	level := append([]ident.Hash(nil), leaves...)
	levels := [][]ident.Hash{level}
	for len(level) > 1 {
		next := make([]ident.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, Hash(level[i], right))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}, nil
}

// Root returns the tree's root. A single-leaf tree's root is the leaf.
func (t *Tree) Root() ident.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the structured proof for the leaf at index i, or nil when i
// is out of range.
func (t *Tree) Proof(i int) []Node {
	if i < 0 || i >= len(t.levels[0]) {
		return nil
	}
	proof := make([]Node, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		var left, right ident.Hash
		if i%2 == 0 {
			left = level[i]
			right = left
			if i+1 < len(level) {
				right = level[i+1]
			}
		} else {
			left, right = level[i-1], level[i]
		}
		proof = append(proof, Node{LeftLeaf: left, RightLeaf: right, Successor: Hash(left, right)})
		i /= 2
	}
	return proof
}
