package revision

import "xdao.co/aqua/ident"

// Metadata places a revision in its branch and carries the hashes that
// identify it.
type Metadata struct {
	DomainID                 string      `json:"domain_id"`
	TimeStamp                Timestamp   `json:"time_stamp"`
	PreviousVerificationHash *ident.Hash `json:"previous_verification_hash,omitempty"`
	MetadataHash             ident.Hash  `json:"metadata_hash"`
	VerificationHash         ident.Hash  `json:"verification_hash"`
}

// MetadataHash returns SHA3-512(domain_id ‖ time_stamp ‖ previous hash hex).
// The previous hash contributes nothing for a genesis revision.
func MetadataHash(domainID string, ts Timestamp, prev *ident.Hash) ident.Hash {
	var prevHex string
	if prev != nil {
		prevHex = prev.String()
	}
	return ident.SumConcat([]byte(domainID), []byte(ts.String()), []byte(prevHex))
}

// VerificationHash returns SHA3-512 over the hex forms of the content hash,
// the metadata hash, and the predecessor's signature and witness hashes.
// Absent predecessor hashes contribute nothing.
func VerificationHash(contentHash, metadataHash ident.Hash, prevSignature, prevWitness *ident.Hash) ident.Hash {
	parts := [][]byte{[]byte(contentHash.String()), []byte(metadataHash.String())}
	if prevSignature != nil {
		parts = append(parts, []byte(prevSignature.String()))
	}
	if prevWitness != nil {
		parts = append(parts, []byte(prevWitness.String()))
	}
	return ident.SumConcat(parts...)
}
