package sphinx

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnrouter/keychain"
	"golang.org/x/crypto/chacha20"
)

// Hash256 is a 32 byte shared secret or key.
type Hash256 [sha256.Size]byte

// keyType is the label mixed into the HMAC that derives a sub key from a
// hop's shared secret.
type keyType string

const (
	// rhoKey derives the key stream obfuscating the routing info.
	rhoKey keyType = "rho"

	// muKey derives the key authenticating the routing info.
	muKey keyType = "mu"

	// umKey derives the key authenticating failure messages.
	umKey keyType = "um"

	// ammagKey derives the key stream obfuscating failure messages.
	ammagKey keyType = "ammag"
)

// generateKey generates a new key for usage in Sphinx packet
// construction/processing based off of the denoted keyType. Within Sphinx
// various keys are used within the same onion packet for padding generation,
// MAC generation, and encryption/decryption.
func generateKey(kt keyType, sharedKey *Hash256) Hash256 {
	mac := hmac.New(sha256.New, []byte(kt))
	mac.Write(sharedKey[:])

	var h Hash256
	copy(h[:], mac.Sum(nil))

	return h
}

// generateCipherStream generates a stream of cryptographic pseudo-random
// bytes intended to be used to encrypt a message using a one-time-pad like
// construction.
func generateCipherStream(key Hash256, numBytes uint) []byte {
	var (
		nonce [chacha20.NonceSize]byte
		out   = make([]byte, numBytes)
	)

	// The key is always 32 bytes and the nonce always 12, so creating the
	// cipher can't fail.
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		panic(err)
	}
	cipher.XORKeyStream(out, out)

	return out
}

// calcMac calculates HMAC-SHA-256 over the message using the passed secret
// key as input to the HMAC.
func calcMac(key Hash256, msg []byte) [HMACSize]byte {
	hmac := hmac.New(sha256.New, key[:])
	hmac.Write(msg)
	h := hmac.Sum(nil)

	var mac [HMACSize]byte
	copy(mac[:], h[:HMACSize])

	return mac
}

// xor computes the byte wise XOR of a and b, storing the result in dst. Only
// the first `min(len(a), len(b))` bytes will be xor'd.
func xor(dst, a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dst[i] = a[i] ^ b[i]
	}
	return n
}

// computeBlindingFactor for the next hop given the ephemeral pubKey and
// sharedSecret for this hop. The blinding factor is computed as the
// sha-256(pubkey || sharedSecret).
func computeBlindingFactor(hopPubKey *btcec.PublicKey,
	hopSharedSecret []byte) btcec.ModNScalar {

	sha := sha256.New()
	sha.Write(hopPubKey.SerializeCompressed())
	sha.Write(hopSharedSecret)

	var (
		hash           Hash256
		blindingFactor btcec.ModNScalar
	)
	copy(hash[:], sha.Sum(nil))
	blindingFactor.SetBytes((*[32]byte)(&hash))

	return blindingFactor
}

// blindGroupElement blinds the group element P by performing scalar
// multiplication of the group element by blindingFactor: blindingFactor * P.
func blindGroupElement(hopPubKey *btcec.PublicKey,
	blindingFactor *btcec.ModNScalar) *btcec.PublicKey {

	return keychain.MulPubKey(blindingFactor, hopPubKey)
}

// generateSharedSecrets derives the shared secret of every hop of the path
// from the session key. The ephemeral key used against hop i+1 is the one used
// against hop i multiplied by that hop's blinding factor.
func generateSharedSecrets(paymentPath []*btcec.PublicKey,
	sessionKey *btcec.PrivateKey) []Hash256 {

	var (
		sharedSecrets = make([]Hash256, len(paymentPath))
		ephemeral     = sessionKey.Key
	)
	for i, pubKey := range paymentPath {
		sharedSecrets[i] = keychain.ECDH(&ephemeral, pubKey)

		ephemeralPub := ephemeralPubKey(&ephemeral)
		blindingFactor := computeBlindingFactor(
			ephemeralPub, sharedSecrets[i][:],
		)
		ephemeral.Mul(&blindingFactor)
	}

	return sharedSecrets
}

// ephemeralPubKey returns the public key of the ephemeral scalar k.
func ephemeralPubKey(k *btcec.ModNScalar) *btcec.PublicKey {
	keyBytes := k.Bytes()
	_, pub := btcec.PrivKeyFromBytes(keyBytes[:])

	return pub
}
