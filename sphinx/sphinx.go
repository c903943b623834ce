package sphinx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnrouter/lnwire"
)

const (
	// NumMaxHops is the maximum path length. There is a maximum of 1300
	// bytes in the routing info block. Legacy hop payloads are always 65
	// bytes, so the maximum number of hops that fit is 20.
	NumMaxHops = 20

	// HMACSize is the length of the HMACs used to verify the integrity of
	// the onion. Any value lower than 32 will truncate the HMAC both
	// during onion creation as well as during the verification.
	HMACSize = 32

	// PerHopSize is the size of the forwarding instructions a single hop
	// receives: 8 bytes of channel id, 8 bytes of amount, 4 bytes of cltv
	// and 12 bytes of padding.
	PerHopSize = 32

	// perHopPaddingSize is the number of zero bytes trailing the
	// forwarding instructions within PerHopSize.
	perHopPaddingSize = 12

	// HopDataSize is the fixed size of a single hop frame: one byte of
	// realm, the per hop payload and the HMAC for the next hop.
	HopDataSize = 1 + PerHopSize + HMACSize

	// RoutingInfoSize is the fixed size of the routing info: one frame per
	// possible hop. Unused space is zero padded and obfuscated like the
	// rest.
	RoutingInfoSize = NumMaxHops * HopDataSize

	// NumStreamBytes is the number of bytes produced by our CSPRG for the
	// key stream implementing our stream cipher to encrypt/decrypt the mix
	// header. The extra HopDataSize bytes are used to shift the next frame
	// in while peeling.
	NumStreamBytes = RoutingInfoSize + HopDataSize

	// OnionPacketSize is the size of the serialized Sphinx onion packet
	// included in each UpdateAddHTLC message. The breakdown of the onion
	// packet is as follows: 1-byte version, 33-byte ephemeral public key
	// (for ECDH), 1300-bytes of per-hop data, and a 32-byte HMAC over the
	// entire packet.
	OnionPacketSize = 1 + btcec.PubKeyBytesLenCompressed +
		RoutingInfoSize + HMACSize

	// baseVersion represent the current supported version of onion
	// packet.
	baseVersion = 0

	// realmBitcoin is the only realm we know how to forward.
	realmBitcoin = 0
)

var (
	// ErrInvalidOnionVersion is returned if the version byte of a packet
	// is not one we understand.
	ErrInvalidOnionVersion = errors.New("invalid onion packet version")

	// ErrInvalidOnionHMAC is returned if the HMAC of a packet doesn't
	// match the one we compute over its routing info.
	ErrInvalidOnionHMAC = errors.New("invalid mismatched mac")

	// ErrInvalidOnionKey is returned if the ephemeral key of a packet
	// can't be parsed as a point on the curve.
	ErrInvalidOnionKey = errors.New("invalid onion key: pubkey isn't on " +
		"secp256k1 curve")

	// ErrUnsupportedRealm is returned when a hop frame carries a realm
	// other than bitcoin.
	ErrUnsupportedRealm = errors.New("unsupported hop realm")

	// ErrInvalidLength is returned when a fixed size structure is fed the
	// wrong number of bytes.
	ErrInvalidLength = errors.New("invalid field length")

	// ErrMaxRoutingInfoSizeExceeded is returned when a path doesn't fit in
	// the routing info.
	ErrMaxRoutingInfoSizeExceeded = errors.New("max routing info size " +
		"exceeded")

	// ErrInvalidHopCount is returned when the number of hop payloads
	// doesn't match the number of public keys of a path.
	ErrInvalidHopCount = errors.New("number of hop payloads doesn't " +
		"match path length")
)

// readFull reads exactly len(b) bytes, translating a short read into
// ErrInvalidLength.
func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrInvalidLength

	case err != nil:
		return err
	}

	return nil
}

// PerHop holds the forwarding instructions a hop extracts from its layer of
// the onion.
type PerHop struct {
	// NextAddress is the channel the HTLC should be forwarded over. It is
	// all zeroes for the final hop.
	NextAddress lnwire.ShortChannelID

	// AmtToForward is the amount to forward to the next hop.
	AmtToForward lnwire.MilliSatoshi

	// OutgoingCltv is the absolute timelock of the outgoing HTLC.
	OutgoingCltv uint32
}

// Encode writes the 32 byte serialization of the instructions to w.
func (p *PerHop) Encode(w io.Writer) error {
	var b [PerHopSize]byte
	binary.BigEndian.PutUint64(b[0:8], p.NextAddress.ToUint64())
	binary.BigEndian.PutUint64(b[8:16], uint64(p.AmtToForward))
	binary.BigEndian.PutUint32(b[16:20], p.OutgoingCltv)

	_, err := w.Write(b[:])
	return err
}

// Decode reads exactly 32 bytes from r into the instructions.
func (p *PerHop) Decode(r io.Reader) error {
	var b [PerHopSize]byte
	if err := readFull(r, b[:]); err != nil {
		return err
	}

	p.NextAddress = lnwire.NewShortChanIDFromInt(
		binary.BigEndian.Uint64(b[0:8]),
	)
	p.AmtToForward = lnwire.MilliSatoshi(binary.BigEndian.Uint64(b[8:16]))
	p.OutgoingCltv = binary.BigEndian.Uint32(b[16:20])

	return nil
}

// HopData is the 65 byte frame a single hop finds at the front of its peeled
// routing info.
type HopData struct {
	// Realm denotes the chain of the next hop. Only bitcoin (0x00) is
	// understood.
	Realm byte

	// ForwardingInfo holds the hop's forwarding instructions.
	ForwardingInfo PerHop

	// HMAC is the HMAC of the packet the hop forwards. An all zero HMAC
	// marks the hop as the final recipient.
	HMAC [HMACSize]byte
}

// Encode writes the serialized frame to w.
func (hd *HopData) Encode(w io.Writer) error {
	if _, err := w.Write([]byte{hd.Realm}); err != nil {
		return err
	}

	if err := hd.ForwardingInfo.Encode(w); err != nil {
		return err
	}

	_, err := w.Write(hd.HMAC[:])
	return err
}

// Decode reads a serialized frame from r.
func (hd *HopData) Decode(r io.Reader) error {
	var realm [1]byte
	if err := readFull(r, realm[:]); err != nil {
		return err
	}
	hd.Realm = realm[0]

	if err := hd.ForwardingInfo.Decode(r); err != nil {
		return err
	}

	return readFull(r, hd.HMAC[:])
}

// IsFinal returns true if the frame carries no HMAC for a next hop.
func (hd *HopData) IsFinal() bool {
	return hd.HMAC == [HMACSize]byte{}
}

// OnionPacket is the onion wrapped hop-to-hop routing information necessary
// to propagate a message through the mix-net without intermediate nodes
// having knowledge of their position within the route, the source, the
// destination, and finally the identities of the past/future nodes in the
// route. At each hop the ephemeral key is used by the node to perform ECDH
// between itself and the source node. This derived secret key is used to
// check the MAC of the entire mix header, decrypt the next set of routing
// information, and re-randomize the ephemeral key for the next node in the
// path. This per-hop re-randomization allows us to only propagate a single
// group element through the onion route.
type OnionPacket struct {
	// Version denotes the version of this onion packet. The version
	// indicates how a receiver of the packet should interpret the bytes
	// following this version byte. Currently, a version of 0x00 is the
	// only defined version type.
	Version byte

	// EphemeralKey is the public key that each hop will used in
	// combination with the private key in an ECDH to derive the shared
	// secret used to check the HMAC on the packet and also decrypted the
	// routing information.
	EphemeralKey *btcec.PublicKey

	// RoutingInfo is the full routing information for this onion packet.
	// This encodes all the forwarding instructions for this current hop
	// and all the hops in the route.
	RoutingInfo [RoutingInfoSize]byte

	// HeaderMAC is an HMAC computed with the shared secret of the routing
	// data and the associated data for this route. Including the
	// associated data lets each hop authenticate higher-level data that
	// is critical for the forwarding of this HTLC.
	HeaderMAC [HMACSize]byte
}

// Encode serializes the raw bytes of the onion packet into the passed
// io.Writer. The form encoded within the passed io.Writer is suitable for
// either storing on disk, or sending over the network.
func (f *OnionPacket) Encode(w io.Writer) error {
	if f.EphemeralKey == nil {
		return ErrInvalidOnionKey
	}

	ephemeral := f.EphemeralKey.SerializeCompressed()

	if _, err := w.Write([]byte{f.Version}); err != nil {
		return err
	}

	if _, err := w.Write(ephemeral); err != nil {
		return err
	}

	if _, err := w.Write(f.RoutingInfo[:]); err != nil {
		return err
	}

	if _, err := w.Write(f.HeaderMAC[:]); err != nil {
		return err
	}

	return nil
}

// Decode fully populates the target OnionPacket from the raw bytes encoded
// within the io.Reader. In the case of any decoding errors, an error will be
// returned. On success the packet is ready to be passed to
// ProcessOnionPacket.
func (f *OnionPacket) Decode(r io.Reader) error {
	var buf [1]byte
	if err := readFull(r, buf[:]); err != nil {
		return err
	}
	f.Version = buf[0]

	// If version of the onion packet protocol unknown for us than in
	// might lead to improperly decoded data.
	if f.Version != baseVersion {
		return ErrInvalidOnionVersion
	}

	var ephemeral [btcec.PubKeyBytesLenCompressed]byte
	if err := readFull(r, ephemeral[:]); err != nil {
		return err
	}

	var err error
	f.EphemeralKey, err = btcec.ParsePubKey(ephemeral[:])
	if err != nil {
		return ErrInvalidOnionKey
	}

	if err := readFull(r, f.RoutingInfo[:]); err != nil {
		return err
	}

	return readFull(r, f.HeaderMAC[:])
}

// DecodeOnionPacket parses a packet from b, which must be exactly
// OnionPacketSize bytes long.
func DecodeOnionPacket(b []byte) (*OnionPacket, error) {
	if len(b) != OnionPacketSize {
		return nil, ErrInvalidLength
	}

	var pkt OnionPacket
	if err := pkt.Decode(bytes.NewReader(b)); err != nil {
		return nil, err
	}

	return &pkt, nil
}
