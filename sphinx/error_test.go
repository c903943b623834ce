package sphinx

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnrouter/keychain"
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/stretchr/testify/require"
)

// peelSecrets routes a packet through every hop of the route, returning the
// shared secret each hop learnt.
func peelSecrets(t *testing.T, route *testRoute) []Hash256 {
	t.Helper()

	pkt, err := NewOnionPacket(
		route.path, route.sessionKey, route.hops, testAssocData,
	)
	require.NoError(t, err)

	secrets := make([]Hash256, len(route.path))
	for i := range route.path {
		processed, err := ProcessOnionPacket(
			pkt, testAssocData,
			keychain.NewPrivKeyECDH(route.nodeKeys[i]),
		)
		require.NoError(t, err)

		secrets[i] = processed.SharedSecret
		pkt = processed.NextPacket
	}

	return secrets
}

// wrapBackwards creates a failure at hop failingHop and obfuscates it at
// every hop between it and the sender, as forwarding nodes do.
func wrapBackwards(secrets []Hash256, failingHop int, msg []byte) []byte {
	blob := NewOnionErrorEncrypter(secrets[failingHop]).EncryptError(
		true, msg,
	)
	for i := failingHop - 1; i >= 0; i-- {
		blob = NewOnionErrorEncrypter(secrets[i]).EncryptError(
			false, blob,
		)
	}

	return blob
}

// TestOnionErrorAttribution makes sure the sender attributes a failure to the
// hop that created it and recovers the plaintext.
func TestOnionErrorAttribution(t *testing.T) {
	t.Parallel()

	const numHops = 5
	route := newTestRoute(t, numHops)
	secrets := peelSecrets(t, route)

	// The secrets learnt by the hops are the ones the sender derives.
	require.Equal(t, generateSharedSecrets(route.path, route.sessionKey),
		secrets)

	decrypter := NewOnionErrorDecrypter(&Circuit{
		SessionKey:  route.sessionKey,
		PaymentPath: route.path,
	})

	for failingHop := 0; failingHop < numHops; failingHop++ {
		failure := lnwire.NewFailureMessage(
			lnwire.CodeTemporaryChannelFailure,
			[]byte{byte(failingHop), 0xaa},
		)
		blob := wrapBackwards(secrets, failingHop, failure.Encode())

		// Every failure is padded to the same size on the wire.
		require.Len(t, blob, HMACSize+2*failureLengthSize+
			failureMessageLength)

		decrypted, err := decrypter.DecryptError(blob)
		require.NoError(t, err, "hop %d", failingHop)
		require.Equal(t, failingHop, decrypted.SenderIdx)
		require.True(t, decrypted.Sender.IsEqual(route.path[failingHop]))

		decoded, err := lnwire.DecodeFailureMessage(decrypted.Message)
		require.NoError(t, err)
		require.Equal(t, failure, decoded)
	}
}

// TestOnionErrorWrongSecrets checks that a failure wrapped with secrets the
// sender doesn't know can't be attributed to any hop.
func TestOnionErrorWrongSecrets(t *testing.T) {
	t.Parallel()

	route := newTestRoute(t, 4)
	secrets := peelSecrets(t, route)

	failure := lnwire.NewFailureMessage(lnwire.CodeUnknownNextPeer, nil)
	blob := wrapBackwards(secrets, 2, failure.Encode())

	otherSession, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	tests := []struct {
		name    string
		circuit *Circuit
		blob    []byte
	}{
		{
			name: "wrong session key",
			circuit: &Circuit{
				SessionKey:  otherSession,
				PaymentPath: route.path,
			},
			blob: blob,
		},
		{
			name: "incomplete path",
			circuit: &Circuit{
				SessionKey:  route.sessionKey,
				PaymentPath: route.path[:2],
			},
			blob: blob,
		},
		{
			name: "tampered blob",
			circuit: &Circuit{
				SessionKey:  route.sessionKey,
				PaymentPath: route.path,
			},
			blob: func() []byte {
				b := append([]byte{}, blob...)
				b[40] ^= 0x01
				return b
			}(),
		},
		{
			name: "too short",
			circuit: &Circuit{
				SessionKey:  route.sessionKey,
				PaymentPath: route.path,
			},
			blob: blob[:HMACSize],
		},
	}

	for _, testCase := range tests {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			decrypter := NewOnionErrorDecrypter(testCase.circuit)
			_, err := decrypter.DecryptError(testCase.blob)
			require.ErrorIs(t, err, ErrUnreadableFailure)
		})
	}
}

// TestOnionErrorFraming checks messages longer than the padded size are
// carried whole, and a bogus length prefix is refused.
func TestOnionErrorFraming(t *testing.T) {
	t.Parallel()

	route := newTestRoute(t, 2)
	secrets := peelSecrets(t, route)
	decrypter := NewOnionErrorDecrypter(&Circuit{
		SessionKey:  route.sessionKey,
		PaymentPath: route.path,
	})

	long := bytes.Repeat([]byte{0x42}, failureMessageLength+10)
	decrypted, err := decrypter.DecryptError(wrapBackwards(secrets, 1, long))
	require.NoError(t, err)
	require.Equal(t, long, decrypted.Message)
	require.Equal(t, 1, decrypted.SenderIdx)

	// Authenticate a payload whose length prefix runs past its end.
	payload := []byte{0xff, 0xff, 0x00}
	um := generateKey(umKey, &secrets[0])
	mac := calcMac(um, payload)
	blob := NewOnionErrorEncrypter(secrets[0]).EncryptError(
		false, append(mac[:], payload...),
	)

	_, err = decrypter.DecryptError(blob)
	require.ErrorIs(t, err, ErrInvalidFailureFraming)
}
