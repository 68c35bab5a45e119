package revision

import (
	"xdao.co/aqua/ident"
	"xdao.co/aqua/merkle"
)

// Witness anchors a revision in an external ledger through a Merkle proof.
type Witness struct {
	DomainSnapshotGenesisHash    ident.Hash    `json:"domain_snapshot_genesis_hash"`
	MerkleRoot                   ident.Hash    `json:"merkle_root"`
	WitnessNetwork               string        `json:"witness_network"`
	WitnessEventTransactionHash  ident.TxHash  `json:"witness_event_transaction_hash"`
	WitnessEventVerificationHash ident.Hash    `json:"witness_event_verification_hash"`
	WitnessHash                  ident.Hash    `json:"witness_hash"`
	StructuredMerkleProof        []merkle.Node `json:"structured_merkle_proof"`
}

// NewWitness fills the derived hashes for a witness event.
func NewWitness(genesis, root ident.Hash, network string, tx ident.TxHash, proof []merkle.Node) *Witness {
	w := &Witness{
		DomainSnapshotGenesisHash:   genesis,
		MerkleRoot:                  root,
		WitnessNetwork:              network,
		WitnessEventTransactionHash: tx,
		StructuredMerkleProof:       append([]merkle.Node(nil), proof...),
	}
	w.WitnessEventVerificationHash = EventVerificationHash(genesis, root)
	w.WitnessHash = w.computeHash()
	return w
}

// EventVerificationHash is the value published in the ledger transaction:
// SHA3-512 over the raw genesis and root bytes.
func EventVerificationHash(genesis, root ident.Hash) ident.Hash {
	return ident.SumConcat(genesis[:], root[:])
}

func (w *Witness) computeHash() ident.Hash {
	return ident.SumConcat(
		[]byte(w.DomainSnapshotGenesisHash.String()),
		[]byte(w.MerkleRoot.String()),
		[]byte(w.WitnessNetwork),
		[]byte(w.WitnessEventTransactionHash.String()),
	)
}

// VerifyFor checks that leaf is included under MerkleRoot and that the event
// and witness hashes match their inputs. A failed proof wraps
// merkle.ErrProofInvalid.
func (w *Witness) VerifyFor(leaf ident.Hash) error {
	if err := merkle.Verify(leaf, w.StructuredMerkleProof, w.MerkleRoot); err != nil {
		return wrapError(KindWitnessInvalid, "merkle proof", err)
	}
	if EventVerificationHash(w.DomainSnapshotGenesisHash, w.MerkleRoot) != w.WitnessEventVerificationHash {
		return newError(KindWitnessInvalid, "witness_event_verification_hash does not match genesis and root")
	}
	if w.computeHash() != w.WitnessHash {
		return newError(KindWitnessInvalid, "witness_hash does not match witness fields")
	}
	return nil
}
