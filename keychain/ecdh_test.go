package keychain

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

// TestPrivKeyECDHSymmetric checks that both ends of an ECDH exchange derive
// the same secret.
func TestPrivKeyECDHSymmetric(t *testing.T) {
	t.Parallel()

	alice, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	bob, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	aliceECDH := NewPrivKeyECDH(alice)
	bobECDH := NewPrivKeyECDH(bob)

	secret1, err := aliceECDH.ECDH(bob.PubKey())
	require.NoError(t, err)
	secret2, err := bobECDH.ECDH(alice.PubKey())
	require.NoError(t, err)

	require.Equal(t, secret1, secret2)
	require.True(t, aliceECDH.PubKey().IsEqual(alice.PubKey()))
}

// TestMulPubKey checks that multiplying a public key by a scalar matches
// multiplying the private key.
func TestMulPubKey(t *testing.T) {
	t.Parallel()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var k btcec.ModNScalar
	k.SetInt(7)

	product := priv.Key
	product.Mul(&k)
	productBytes := product.Bytes()
	_, want := btcec.PrivKeyFromBytes(productBytes[:])

	require.True(t, MulPubKey(&k, priv.PubKey()).IsEqual(want))
}
