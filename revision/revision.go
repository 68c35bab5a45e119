package revision

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"xdao.co/aqua/ident"
)

// Revision is one immutable, hash-identified version of a piece of content.
//
// Revisions are values: the builder methods below return modified copies and
// never change the receiver.
type Revision struct {
	Content   Content            `json:"content"`
	Metadata  Metadata           `json:"metadata"`
	Signature *RevisionSignature `json:"signature"`
	Witness   *Witness           `json:"witness"`
}

// New builds a sealed, unsigned, unwitnessed revision following prev. A nil
// prev starts a new branch.
func New(domainID string, ts Timestamp, content Content, prev *Revision) Revision {
	r := Revision{
		Content:  content,
		Metadata: Metadata{DomainID: domainID, TimeStamp: ts},
	}
	return r.Seal(prev)
}

// Hash returns the revision's identity, its verification hash.
func (r Revision) Hash() ident.Hash { return r.Metadata.VerificationHash }

// IsGenesis reports whether r starts a branch.
func (r Revision) IsGenesis() bool { return r.Metadata.PreviousVerificationHash == nil }

// Seal recomputes the metadata and verification hashes for prev.
func (r Revision) Seal(prev *Revision) Revision {
	m := r.Metadata
	m.PreviousVerificationHash = nil
	if prev != nil {
		h := prev.Hash()
		m.PreviousVerificationHash = &h
	}
	m.MetadataHash = MetadataHash(m.DomainID, m.TimeStamp, m.PreviousVerificationHash)
	sigDigest, witnessHash := linkHashes(prev)
	m.VerificationHash = VerificationHash(r.Content.ContentHash, m.MetadataHash, sigDigest, witnessHash)
	r.Metadata = m
	return r
}

// Sign returns a copy of r signed by priv over its verification hash.
func (r Revision) Sign(priv *secp256k1.PrivateKey) (Revision, error) {
	sig, err := NewSignature(r.Hash(), priv)
	if err != nil {
		return Revision{}, err
	}
	r.Signature = sig
	return r, nil
}

// WithWitness returns a copy of r carrying w.
func (r Revision) WithWitness(w *Witness) Revision {
	r.Witness = w
	return r
}

func linkHashes(prev *Revision) (sig, witness *ident.Hash) {
	if prev == nil {
		return nil, nil
	}
	if prev.Signature != nil {
		d := prev.Signature.Digest()
		sig = &d
	}
	if prev.Witness != nil {
		w := prev.Witness.WitnessHash
		witness = &w
	}
	return sig, witness
}

// Verify runs every check against prev and returns the first failure.
func (r Revision) Verify(prev *Revision) error {
	if err := r.VerifyContent(); err != nil {
		return err
	}
	if err := r.VerifyMetadata(prev); err != nil {
		return err
	}
	if err := r.VerifySignature(); err != nil {
		return err
	}
	return r.VerifyWitness()
}

func (r Revision) VerifyContent() error { return r.Content.Validate() }

// VerifyMetadata checks linkage to prev, the metadata hash and the
// verification hash.
func (r Revision) VerifyMetadata(prev *Revision) error {
	m := r.Metadata
	switch {
	case prev == nil && m.PreviousVerificationHash != nil:
		return newError(KindLinkage, "genesis revision names a previous revision")
	case prev != nil && m.PreviousVerificationHash == nil:
		return newError(KindLinkage, "revision does not name its previous revision")
	case prev != nil && *m.PreviousVerificationHash != prev.Hash():
		return newError(KindLinkage, "previous_verification_hash does not match previous revision")
	}
	if MetadataHash(m.DomainID, m.TimeStamp, m.PreviousVerificationHash) != m.MetadataHash {
		return newError(KindMetadataHashMismatch, "metadata_hash does not match metadata")
	}
	sigDigest, witnessHash := linkHashes(prev)
	if VerificationHash(r.Content.ContentHash, m.MetadataHash, sigDigest, witnessHash) != m.VerificationHash {
		return newError(KindVerificationHashMismatch, "verification_hash does not match revision")
	}
	return nil
}

// VerifySignature checks the signature, if any, against the verification hash.
func (r Revision) VerifySignature() error {
	if r.Signature == nil {
		return nil
	}
	if r.Signature.SignatureHash != r.Hash() {
		return newError(KindSignedHashMismatch, "signature_hash is not the verification hash")
	}
	return r.Signature.Verify()
}

// VerifyWitness checks the witness, if any, with the verification hash as
// the Merkle leaf.
func (r Revision) VerifyWitness() error {
	if r.Witness == nil {
		return nil
	}
	return r.Witness.VerifyFor(r.Hash())
}
