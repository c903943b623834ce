package sphinx

import (
	"bytes"
	"crypto/hmac"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnrouter/keychain"
)

// generateHeaderPadding derives the bytes for padding the mix header to
// ensure it remains fixed sized throughout route transit. At each step, we
// add 'HopDataSize' padding of zeroes, concatenate it to the previous filler,
// then decrypt it (XOR) with the secret key of the current hop. When
// encrypting the mix header we essentially do the reverse of this operation:
// we "encrypt" the padding, and drop 'HopDataSize' number of zeroes. As
// nodes process the mix header they add the padding ('HopDataSize') in order
// to check the MAC and decrypt the next routing information eventually
// leaving only the original "filler" bytes produced by this function at the
// last hop. Using this methodology, the size of the field stays constant at
// each hop.
func generateHeaderPadding(key keyType, numHops int,
	sharedSecrets []Hash256) []byte {

	var filler []byte

	// The final hop doesn't obfuscate anything, so only the hops before
	// it contribute to the filler.
	for i := 0; i < numHops-1; i++ {
		filler = append(filler, make([]byte, HopDataSize)...)

		streamKey := generateKey(key, &sharedSecrets[i])
		streamBytes := generateCipherStream(streamKey, NumStreamBytes)

		xor(filler, filler, streamBytes[NumStreamBytes-len(filler):])
	}

	return filler
}

// NewOnionPacket creates a new onion packet which is capable of obliviously
// routing a message through the mix-net path outline by 'paymentPath'. The
// hops slice carries the frame each node finds once it peeled its layer, in
// the same order as the path. The HMAC fields of the frames are overwritten
// while the packet is assembled.
func NewOnionPacket(paymentPath []*btcec.PublicKey,
	sessionKey *btcec.PrivateKey, hops []HopData,
	assocData []byte) (*OnionPacket, error) {

	numHops := len(paymentPath)
	switch {
	case numHops == 0 || numHops > NumMaxHops:
		return nil, fmt.Errorf("%w: %d hops", ErrMaxRoutingInfoSizeExceeded,
			numHops)

	case len(hops) != numHops:
		return nil, fmt.Errorf("%w: %d payloads for %d hops",
			ErrInvalidHopCount, len(hops), numHops)
	}

	hopSharedSecrets := generateSharedSecrets(paymentPath, sessionKey)

	// Generate the padding, called "filler strings" in the paper.
	filler := generateHeaderPadding(rhoKey, numHops, hopSharedSecrets)

	return assemblePacket(
		sessionKey, hopSharedSecrets, hops, assocData, filler,
	)
}

// assemblePacket wraps the hop frames in reverse order, splicing the filler
// into the tail of the innermost layer.
func assemblePacket(sessionKey *btcec.PrivateKey, hopSharedSecrets []Hash256,
	hops []HopData, assocData, filler []byte) (*OnionPacket, error) {

	numHops := len(hopSharedSecrets)

	// Allocate zero'd out byte slices to store the final mix header packet
	// and the hmac for each hop.
	var (
		mixHeader  [RoutingInfoSize]byte
		nextHmac   [HMACSize]byte
		hopDataBuf bytes.Buffer
	)

	// Now we compute the routing information for each hop, along with a
	// MAC of the routing info using the shared key for that hop.
	for i := numHops - 1; i >= 0; i-- {
		// We'll derive the two keys we need for each hop in order to:
		// generate our stream cipher bytes for the mixHeader, and
		// calculate the MAC over the entire constructed packet.
		rho := generateKey(rhoKey, &hopSharedSecrets[i])
		mu := generateKey(muKey, &hopSharedSecrets[i])

		// The HMAC for the final hop is simply zeroes. This allows the
		// last hop to recognize that it is the destination for a
		// particular payment.
		hop := hops[i]
		hop.HMAC = nextHmac

		// Next, using the key dedicated for our stream cipher, we'll
		// generate enough bytes to obfuscate this layer of the onion
		// packet.
		streamBytes := generateCipherStream(rho, RoutingInfoSize)

		// Before we assemble the packet, we'll shift the current
		// mix-header to the right in order to make room for this next
		// per-hop data.
		hopDataBuf.Reset()
		if err := hop.Encode(&hopDataBuf); err != nil {
			return nil, err
		}
		copy(mixHeader[HopDataSize:], mixHeader[:])
		copy(mixHeader[:], hopDataBuf.Bytes())

		// With the routing info for our hop written into place, we'll
		// xor the entire mix header with the cipher stream.
		xor(mixHeader[:], mixHeader[:], streamBytes)

		// If this is the "last" hop, then we'll override the tail of
		// the hop data.
		if i == numHops-1 {
			copy(mixHeader[len(mixHeader)-len(filler):], filler)
		}

		// The packet for this hop consists of: mixHeader. When
		// calculating the MAC, we also include the optional associated
		// data which can allow higher level applications to prevent
		// replay attacks.
		packet := append(mixHeader[:], assocData...)
		nextHmac = calcMac(mu, packet)
	}

	return &OnionPacket{
		Version:      baseVersion,
		EphemeralKey: sessionKey.PubKey(),
		RoutingInfo:  mixHeader,
		HeaderMAC:    nextHmac,
	}, nil
}

// ProcessCode describes what a node should do with a packet it peeled.
type ProcessCode int

const (
	// ExitNode indicates that the node which processed the Sphinx packet
	// is the destination hop in the route.
	ExitNode ProcessCode = iota

	// MoreHops indicates that there are additional hops left within the
	// route. Therefore the caller should forward the packet to the node
	// denoted as the "NextHop".
	MoreHops
)

// String returns a human readable string for each of the ProcessCodes.
func (p ProcessCode) String() string {
	switch p {
	case ExitNode:
		return "ExitNode"
	case MoreHops:
		return "MoreHops"
	default:
		return "Unknown"
	}
}

// ProcessedPacket encapsulates the resulting state generated after processing
// an OnionPacket. A processed packet communicates to the caller what action
// should be taken after processing.
type ProcessedPacket struct {
	// Action represents the action the caller should take after
	// processing the packet.
	Action ProcessCode

	// ForwardingInstructions is the per-hop payload recovered from the
	// initial encrypted onion packet. It details how the packet should be
	// forwarded and also includes information that allows the processor
	// of the packet to authenticate the information passed within the
	// HTLC.
	ForwardingInstructions PerHop

	// NextPacket is the onion packet that should be forwarded to the next
	// hop as denoted by the ForwardingInstructions field. It carries an
	// all zero HMAC if the Action is ExitNode.
	NextPacket *OnionPacket

	// SharedSecret is the secret this node shares with the sender. It is
	// needed to wrap a failure message sent back along the route.
	SharedSecret Hash256
}

// ProcessOnionPacket processes an incoming onion packet which has been
// forwarded to the node holding nodeKey. The packet's HMAC is checked over
// its routing info and the associated data, one layer is peeled and the
// frame addressed to us is parsed. If the frame carries an HMAC for a next
// hop, the returned packet is the one to forward.
func ProcessOnionPacket(onionPkt *OnionPacket, assocData []byte,
	nodeKey keychain.SingleKeyECDH) (*ProcessedPacket, error) {

	if onionPkt.Version != baseVersion {
		return nil, ErrInvalidOnionVersion
	}
	if onionPkt.EphemeralKey == nil {
		return nil, ErrInvalidOnionKey
	}

	dhKey := onionPkt.EphemeralKey
	routingInfo := onionPkt.RoutingInfo
	headerMac := onionPkt.HeaderMAC

	// Compute our shared secret.
	sharedSecret, err := nodeKey.ECDH(dhKey)
	if err != nil {
		return nil, err
	}
	secret := Hash256(sharedSecret)

	// Using the derived shared secret, ensure the integrity of the routing
	// information by checking the attached MAC without leaking timing
	// information.
	message := append(routingInfo[:], assocData...)
	calculatedMac := calcMac(generateKey(muKey, &secret), message)
	if !hmac.Equal(headerMac[:], calculatedMac[:]) {
		return nil, ErrInvalidOnionHMAC
	}

	// Attach the padding zeroes in order to properly strip an encryption
	// layer off the routing info revealing the routing information for
	// the next hop.
	streamBytes := generateCipherStream(
		generateKey(rhoKey, &secret), NumStreamBytes,
	)
	var hopInfo [NumStreamBytes]byte
	copy(hopInfo[:], routingInfo[:])
	xor(hopInfo[:], hopInfo[:], streamBytes)

	// Randomize the DH group element for the next hop using the
	// deterministic blinding factor.
	blindingFactor := computeBlindingFactor(dhKey, secret[:])
	nextDHKey := blindGroupElement(dhKey, &blindingFactor)

	// With the MAC checked, and the payload decrypted, we can now parse
	// out the payload so we can derive the specified forwarding
	// instructions.
	var hopData HopData
	err = hopData.Decode(bytes.NewReader(hopInfo[:HopDataSize]))
	if err != nil {
		return nil, err
	}
	if hopData.Realm != realmBitcoin {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRealm,
			hopData.Realm)
	}

	// With the necessary items extracted, we'll assemble the onion packet
	// for the next node, snipping off our per-hop data.
	var nextMixHeader [RoutingInfoSize]byte
	copy(nextMixHeader[:], hopInfo[HopDataSize:])
	innerPkt := &OnionPacket{
		Version:      onionPkt.Version,
		EphemeralKey: nextDHKey,
		RoutingInfo:  nextMixHeader,
		HeaderMAC:    hopData.HMAC,
	}

	// By default we'll assume that there are additional hops in the route.
	// However if the uncovered 'nextMac' is all zeroes, then this
	// indicates that we're the final hop in the route.
	var action ProcessCode = MoreHops
	if hopData.IsFinal() {
		action = ExitNode
	}

	log.Tracef("Processed onion packet: action=%v, next_hop=%v", action,
		hopData.ForwardingInfo.NextAddress)

	return &ProcessedPacket{
		Action:                 action,
		ForwardingInstructions: hopData.ForwardingInfo,
		NextPacket:             innerPkt,
		SharedSecret:           secret,
	}, nil
}
