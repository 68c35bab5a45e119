package keys

import "xdao.co/aqua/ident"

// Identity is the public half of a signing key as it appears in revisions.
type Identity struct {
	PublicKey ident.PublicKey
	Address   ident.Address
}

// IdentityFromSeed returns the public key and wallet address for a seed.
func IdentityFromSeed(seed []byte) (Identity, error) {
	priv, err := PrivateKeyFromSeed(seed)
	if err != nil {
		return Identity{}, err
	}
	pub := ident.PublicKeyFromPoint(priv.PubKey())
	return Identity{PublicKey: pub, Address: ident.DeriveAddress(pub)}, nil
}
