package keychain

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
)

// SingleKeyECDH is an abstraction interface that hides the implementation of
// an ECDH operation against a specific private key. We use this abstraction
// for the long term keys which we eventually want to be able to keep in a
// hardware wallet or HSM.
type SingleKeyECDH interface {
	// PubKey returns the public key of the private key that is abstracted
	// away by the interface.
	PubKey() *btcec.PublicKey

	// ECDH performs a scalar multiplication (ECDH-like operation) between
	// the abstracted private key and a remote public key. The output
	// returned will be the sha256 of the resulting shared point serialized
	// in compressed format.
	ECDH(pubKey *btcec.PublicKey) ([32]byte, error)
}

// PrivKeyECDH is an implementation of the SingleKeyECDH in which we do have
// the full private key. This can be used to wrap a temporary key to conform to
// the SingleKeyECDH interface.
type PrivKeyECDH struct {
	// PrivKey is the private key that is used for the ECDH operation.
	PrivKey *btcec.PrivateKey
}

// A compile time check to ensure PrivKeyECDH implements the SingleKeyECDH
// interface.
var _ SingleKeyECDH = (*PrivKeyECDH)(nil)

// NewPrivKeyECDH wraps the private key provided.
func NewPrivKeyECDH(privKey *btcec.PrivateKey) *PrivKeyECDH {
	return &PrivKeyECDH{PrivKey: privKey}
}

// PubKey returns the public key of the private key that is abstracted away by
// the interface.
//
// NOTE: This is part of the SingleKeyECDH interface.
func (p *PrivKeyECDH) PubKey() *btcec.PublicKey {
	return p.PrivKey.PubKey()
}

// ECDH performs a scalar multiplication (ECDH-like operation) between the
// target private key and remote public key. The output returned will be
// the sha256 of the resulting shared point serialized in compressed format. If
// k is our private key, and P is the public key, we perform the following
// operation:
//
//	sx := k*P
//	s := sha256(sx.SerializeCompressed())
//
// NOTE: This is part of the SingleKeyECDH interface.
func (p *PrivKeyECDH) ECDH(pub *btcec.PublicKey) ([32]byte, error) {
	return ECDH(&p.PrivKey.Key, pub), nil
}

// ECDH computes sha256(compressed(k*P)) for the scalar and point given.
func ECDH(k *btcec.ModNScalar, pub *btcec.PublicKey) [32]byte {
	var (
		pubJacobian btcec.JacobianPoint
		s           btcec.JacobianPoint
	)
	pub.AsJacobian(&pubJacobian)

	btcec.ScalarMultNonConst(k, &pubJacobian, &s)
	s.ToAffine()
	sPubKey := btcec.NewPublicKey(&s.X, &s.Y)

	return sha256.Sum256(sPubKey.SerializeCompressed())
}

// MulPubKey returns the public key obtained by multiplying the point provided
// with the scalar k.
func MulPubKey(k *btcec.ModNScalar, pub *btcec.PublicKey) *btcec.PublicKey {
	var (
		pubJacobian btcec.JacobianPoint
		res         btcec.JacobianPoint
	)
	pub.AsJacobian(&pubJacobian)

	btcec.ScalarMultNonConst(k, &pubJacobian, &res)
	res.ToAffine()

	return btcec.NewPublicKey(&res.X, &res.Y)
}
