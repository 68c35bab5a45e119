package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

// NameSpace describes a namespace within a domain.
type NameSpace struct {
	Case  bool   `json:"case"`
	Title string `json:"title"`
}

// SiteInfo carries site-level metadata. It has no fields yet and encodes as {}.
type SiteInfo struct{}

// PageData is an export of pages and site metadata.
type PageData struct {
	Pages    []HashChain `json:"pages"`
	SiteInfo SiteInfo    `json:"site_info"`
}

// HashChain is the page-level aggregate: one branch with its revisions.
type HashChain struct {
	GenesisHash ident.Hash   `json:"genesis_hash"`
	DomainID    string       `json:"domain_id"`
	Title       string       `json:"title"`
	Namespace   uint64       `json:"namespace"`
	ChainHeight uint64       `json:"chain_height"`
	Revisions   RevisionList `json:"revisions"`
}

// RevisionEntry is one [hash, revision] pair.
type RevisionEntry struct {
	Hash     ident.Hash
	Revision revision.Revision
}

// RevisionList keeps revisions in insertion order with unique hashes.
//
// It encodes as an array of [hash, revision] pairs. Decoding also accepts an
// object keyed by hash, in document order. Duplicate hashes are rejected.
type RevisionList []RevisionEntry

func (l RevisionList) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, len(l))
	for i, e := range l {
		pairs[i] = [2]any{e.Hash, e.Revision}
	}
	return json.Marshal(pairs)
}

func (l *RevisionList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var out RevisionList
	var err error
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case len(b) > 0 && b[0] == '{':
		out, err = decodeObject(b)
	default:
		out, err = decodePairs(b)
	}
	if err != nil {
		return err
	}
	seen := make(map[ident.Hash]struct{}, len(out))
	for _, e := range out {
		if _, dup := seen[e.Hash]; dup {
			return fmt.Errorf("model: duplicate revision %s", e.Hash)
		}
		seen[e.Hash] = struct{}{}
	}
	*l = out
	return nil
}

func decodePairs(b []byte) (RevisionList, error) {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make(RevisionList, 0, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("model: revisions[%d]: want [hash, revision], got %d elements", i, len(pair))
		}
		var e RevisionEntry
		if err := json.Unmarshal(pair[0], &e.Hash); err != nil {
			return nil, fmt.Errorf("model: revisions[%d] hash: %w", i, err)
		}
		if err := json.Unmarshal(pair[1], &e.Revision); err != nil {
			return nil, fmt.Errorf("model: revisions[%d] revision: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// decodeObject reads {"<hash>": revision, ...} keeping key order, which a Go
// map would lose.
func decodeObject(b []byte) (RevisionList, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out RevisionList
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("model: revisions: unexpected token %v", tok)
		}
		h, err := ident.ParseHash(key)
		if err != nil {
			return nil, fmt.Errorf("model: revisions key: %w", err)
		}
		var rev revision.Revision
		if err := dec.Decode(&rev); err != nil {
			return nil, fmt.Errorf("model: revisions[%s]: %w", key, err)
		}
		out = append(out, RevisionEntry{Hash: h, Revision: rev})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// NewHashChain builds the aggregate for revs, which must form a branch from
// its genesis revision.
func NewHashChain(title string, namespace uint64, revs []revision.Revision) (HashChain, error) {
	if err := revision.VerifyChain(revs); err != nil {
		return HashChain{}, err
	}
	c := HashChain{
		GenesisHash: revs[0].Hash(),
		DomainID:    revs[0].Metadata.DomainID,
		Title:       title,
		Namespace:   namespace,
		ChainHeight: uint64(len(revs)),
		Revisions:   make(RevisionList, len(revs)),
	}
	for i, r := range revs {
		c.Revisions[i] = RevisionEntry{Hash: r.Hash(), Revision: r}
	}
	return c, nil
}

// Validate checks the aggregate's bookkeeping and linkage. It does not
// verify hashes or signatures; use the verify package for that.
func (c HashChain) Validate() error {
	if len(c.Revisions) == 0 {
		return errors.New("model: hash chain has no revisions")
	}
	if c.ChainHeight != uint64(len(c.Revisions)) {
		return fmt.Errorf("model: chain_height %d, have %d revisions", c.ChainHeight, len(c.Revisions))
	}
	if c.Revisions[0].Hash != c.GenesisHash {
		return fmt.Errorf("model: genesis_hash %s is not the first revision", c.GenesisHash)
	}
	for i, e := range c.Revisions {
		if e.Revision.Hash() != e.Hash {
			return fmt.Errorf("model: revisions[%d] is listed as %s but hashes to %s", i, e.Hash, e.Revision.Hash())
		}
	}
	return revision.VerifyChain(c.List())
}

// List returns the revisions in order.
func (c HashChain) List() []revision.Revision {
	out := make([]revision.Revision, len(c.Revisions))
	for i, e := range c.Revisions {
		out[i] = e.Revision
	}
	return out
}

// Branch projects the aggregate to a branch whose metadata is the genesis
// hash string.
func (c HashChain) Branch() revision.Branch[string] {
	hashes := make([]ident.Hash, len(c.Revisions))
	for i, e := range c.Revisions {
		hashes[i] = e.Hash
	}
	return revision.Branch[string]{Metadata: c.GenesisHash.String(), Hashes: hashes}
}

// Import stores every revision of c in order. Revisions already present are
// accepted as long as they are identical.
func Import[C any](ctx context.Context, s storage.Storage[C], c HashChain) error {
	if err := c.Validate(); err != nil {
		return err
	}
	var branchCtx C
	for i, e := range c.Revisions {
		if err := s.Store(ctx, e.Revision, branchCtx); err != nil {
			return fmt.Errorf("model: import %s: %w", e.Hash, err)
		}
		if i == 0 {
			var err error
			if branchCtx, err = s.GetContext(ctx, e.Hash); err != nil {
				return fmt.Errorf("model: import %s: %w", e.Hash, err)
			}
		}
	}
	return nil
}

// Export reads the branch containing h into an aggregate.
func Export[C any](ctx context.Context, s storage.Storage[C], h ident.Hash, title string, namespace uint64) (HashChain, error) {
	b, err := s.GetBranch(ctx, h)
	if err != nil {
		return HashChain{}, err
	}
	revs := make([]revision.Revision, 0, b.Len())
	for _, bh := range b.Hashes {
		r, err := s.Read(ctx, bh)
		if err != nil {
			return HashChain{}, fmt.Errorf("model: export %s: %w", bh, err)
		}
		revs = append(revs, r)
	}
	return NewHashChain(title, namespace, revs)
}
