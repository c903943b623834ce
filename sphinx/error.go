package sphinx

import (
	"crypto/hmac"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	// failureMessageLength is the size every failure message is padded to
	// before it is wrapped, so that failures of different types can't be
	// told apart by their length.
	failureMessageLength = 256

	// failureLengthSize is the size of the length prefixes framing the
	// failure message and its padding.
	failureLengthSize = 2
)

var (
	// ErrUnreadableFailure is returned when none of the hops of a circuit
	// could have produced a failure message. The message was either
	// tampered with or was wrapped with keys we don't know.
	ErrUnreadableFailure = errors.New("unable to decrypt onion failure")

	// ErrInvalidFailureFraming is returned when an authenticated failure
	// doesn't carry a well formed length prefixed message.
	ErrInvalidFailureFraming = errors.New("invalid failure message " +
		"framing")
)

// Circuit is used encapsulate the data which is needed for data
// deobfuscation.
type Circuit struct {
	// SessionKey is the key which have been used during generation of
	// the shared secrets.
	SessionKey *btcec.PrivateKey

	// PaymentPath is the pub keys of the nodes in the payment path.
	PaymentPath []*btcec.PublicKey
}

// DecryptedError contains the decrypted error message and its sender.
type DecryptedError struct {
	// SenderIdx is the position of the error sending hop in the path,
	// starting at zero for the first hop.
	SenderIdx int

	// Sender is the node that sent the error. Note that a node may occur
	// in the path multiple times. If that is the case, the sender pubkey
	// does not tell the caller on which visit the error occurred.
	Sender *btcec.PublicKey

	// Message is the decrypted error message, without its framing.
	Message []byte
}

// OnionErrorDecrypter is a struct that's used to decrypt onion errors in
// response to failed HTLC routing attempts according to BOLT#4.
type OnionErrorDecrypter struct {
	circuit *Circuit
}

// NewOnionErrorDecrypter creates new instance of onion decrypter.
func NewOnionErrorDecrypter(circuit *Circuit) *OnionErrorDecrypter {
	return &OnionErrorDecrypter{
		circuit: circuit,
	}
}

// DecryptError attempts to decrypt the passed encrypted error response. The
// onion failure is encrypted in backward manner, starting from the node
// where error have occurred. As a result, in order to decrypt the error we
// need get all shared secret and apply decryption in the reverse order. A
// structure is returned that contains the decrypted error message and
// information on the sender.
func (o *OnionErrorDecrypter) DecryptError(
	encryptedData []byte) (*DecryptedError, error) {

	if len(encryptedData) < HMACSize+failureLengthSize {
		return nil, fmt.Errorf("%w: failure of %d bytes",
			ErrUnreadableFailure, len(encryptedData))
	}

	sharedSecrets := generateSharedSecrets(
		o.circuit.PaymentPath, o.circuit.SessionKey,
	)

	// We'll iterate a constant amount of hops to ensure that we don't
	// give away a timing side channel to the hop that sent the failure.
	var (
		sender      int
		msg         []byte
		dummySecret Hash256
	)
	copy(dummySecret[:], bytes32(0x01))

	data := make([]byte, len(encryptedData))
	copy(data, encryptedData)

	for i := 0; i < NumMaxHops; i++ {
		var sharedSecret *Hash256

		// If we've already found the sender or the path is shorter
		// than the max number of hops, use the dummy secret.
		if sender != 0 || i >= len(sharedSecrets) {
			sharedSecret = &dummySecret
		} else {
			sharedSecret = &sharedSecrets[i]
		}

		// With the shared secret, we'll now strip off a layer of
		// encryption from the encrypted error payload.
		ammag := generateKey(ammagKey, sharedSecret)
		stream := generateCipherStream(ammag, uint(len(data)))
		xor(data, data, stream)

		// Next, we'll need to separate the data, from the MAC itself
		// so we can reconstruct and verify it.
		expectedMac := data[:HMACSize]
		message := data[HMACSize:]

		// With the data split, we'll now re-generate the MAC using
		// its specified key.
		um := generateKey(umKey, sharedSecret)
		realMac := calcMac(um, message)

		// If the MAC matches up, then we've found the sender of the
		// error and have also obtained the fully decrypted message.
		if sender == 0 && i < len(sharedSecrets) &&
			hmac.Equal(realMac[:], expectedMac) {

			sender = i + 1
			msg = make([]byte, len(message))
			copy(msg, message)
		}
	}

	// If the sender index is still zero, then we haven't found the
	// sender, meaning we've failed to decrypt.
	if sender == 0 {
		return nil, ErrUnreadableFailure
	}

	failure, err := unwrapFailure(msg)
	if err != nil {
		return nil, err
	}

	return &DecryptedError{
		SenderIdx: sender - 1,
		Sender:    o.circuit.PaymentPath[sender-1],
		Message:   failure,
	}, nil
}

// unwrapFailure strips the length prefix of an authenticated failure and
// returns the message it frames.
func unwrapFailure(payload []byte) ([]byte, error) {
	failureLen := int(binary.BigEndian.Uint16(payload[:failureLengthSize]))
	if failureLengthSize+failureLen > len(payload) {
		return nil, fmt.Errorf("%w: length %d exceeds payload of %d "+
			"bytes", ErrInvalidFailureFraming, failureLen,
			len(payload))
	}

	return payload[failureLengthSize : failureLengthSize+failureLen], nil
}

// bytes32 returns a 32 byte slice filled with b.
func bytes32(b byte) []byte {
	s := make([]byte, 32)
	for i := range s {
		s[i] = b
	}
	return s
}

// OnionErrorEncrypter is a struct that's used to implement onion error
// encryption as defined within BOLT0004.
type OnionErrorEncrypter struct {
	sharedSecret Hash256
}

// NewOnionErrorEncrypter creates new instance of the onion encrypter backed
// by the passed shared secret, which the hop derived while processing the
// packet.
func NewOnionErrorEncrypter(sharedSecret Hash256) *OnionErrorEncrypter {
	return &OnionErrorEncrypter{
		sharedSecret: sharedSecret,
	}
}

// EncryptError is used to make data obfuscation using the generated shared
// secret.
//
// In context of Lightning Network is either used by the nodes in order to
// make initial obfuscation with the creation of the hmac or by the forwarding
// nodes for backward failure obfuscation of the onion failure blob. By
// obfuscating the onion failure on every node in the path we are adding
// additional step of the security and barrier for malware nodes to retrieve
// valuable information. The reason for using onion obfuscation is to not give
// away to the nodes in the payment path the information about the exact
// failure and its origin.
func (o *OnionErrorEncrypter) EncryptError(initial bool, data []byte) []byte {
	if initial {
		um := generateKey(umKey, &o.sharedSecret)
		payload := wrapFailure(data)
		hash := calcMac(um, payload)
		data = append(hash[:], payload...)
	}

	ammag := generateKey(ammagKey, &o.sharedSecret)
	stream := generateCipherStream(ammag, uint(len(data)))

	out := make([]byte, len(data))
	xor(out, data, stream)

	return out
}

// wrapFailure frames a failure message as
// len(msg) || msg || len(pad) || pad, padding short messages up to
// failureMessageLength.
func wrapFailure(msg []byte) []byte {
	padLen := 0
	if len(msg) < failureMessageLength {
		padLen = failureMessageLength - len(msg)
	}

	payload := make([]byte, 0, 2*failureLengthSize+len(msg)+padLen)

	var length [failureLengthSize]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(msg)))
	payload = append(payload, length[:]...)
	payload = append(payload, msg...)

	binary.BigEndian.PutUint16(length[:], uint16(padLen))
	payload = append(payload, length[:]...)
	payload = append(payload, make([]byte, padLen)...)

	return payload
}
