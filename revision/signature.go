package revision

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/keys"
)

// RevisionSignature is a wallet signature over a revision's verification hash.
type RevisionSignature struct {
	Signature     ident.Signature `json:"signature"`
	PublicKey     ident.PublicKey `json:"public_key"`
	SignatureHash ident.Hash      `json:"signature_hash"`
	WalletAddress ident.Address   `json:"wallet_address"`
}

// NewSignature signs h with priv.
func NewSignature(h ident.Hash, priv *secp256k1.PrivateKey) (*RevisionSignature, error) {
	sig, err := keys.Sign(h, priv)
	if err != nil {
		return nil, err
	}
	pub := ident.PublicKeyFromPoint(priv.PubKey())
	return &RevisionSignature{
		Signature:     sig,
		PublicKey:     pub,
		SignatureHash: h,
		WalletAddress: ident.DeriveAddress(pub),
	}, nil
}

// Verify checks that WalletAddress belongs to PublicKey and that Signature
// over SignatureHash recovers to PublicKey.
func (s *RevisionSignature) Verify() error {
	if ident.DeriveAddress(s.PublicKey) != s.WalletAddress {
		return newError(KindAddressMismatch, "wallet_address does not match public_key")
	}
	if err := keys.Verify(s.SignatureHash, s.Signature, s.PublicKey); err != nil {
		return wrapError(KindSignatureMismatch, "signature does not recover to public_key", err)
	}
	return nil
}

// Digest returns SHA3-512(signature ‖ public_key) over the canonical string
// forms. The next revision's verification hash commits to it.
func (s *RevisionSignature) Digest() ident.Hash {
	return ident.SumConcat([]byte(s.Signature.String()), []byte(s.PublicKey.String()))
}
