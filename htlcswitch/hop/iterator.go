package hop

import (
	"errors"
	"io"

	"github.com/lightningnetwork/lnrouter/keychain"
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/monitoring"
	"github.com/lightningnetwork/lnrouter/sphinx"
)

// Iterator is an interface that abstracts away the routing information
// included in HTLC's which includes the entirety of the payment path of an
// HTLC. This interface provides two basic method which carry out: how to
// interpret the forwarding information encoded within the HTLC packet, and hop
// to encode the forwarding information for the _next_ hop.
type Iterator interface {
	// ForwardingInfo returns the instructions the sender left for us.
	ForwardingInfo() ForwardingInfo

	// IsExitHop returns true if we are the final hop of the route.
	IsExitHop() bool

	// EncodeNextHop encodes the onion packet destined for the next hop
	// into the passed io.Writer.
	EncodeNextHop(w io.Writer) error

	// ExtractErrorEncrypter returns the encrypter a failure sent back to
	// the sender of this onion must be wrapped with.
	ExtractErrorEncrypter() *sphinx.OnionErrorEncrypter
}

// sphinxHopIterator is the Sphinx implementation of hop iterator which uses
// onion routing to encode the payment route in such a way so that node might
// see only the next hop in the route.
type sphinxHopIterator struct {
	// processedPacket is the outcome of processing an onion packet. It
	// includes the information required to properly forward the packet to
	// the next hop.
	processedPacket *sphinx.ProcessedPacket
}

// makeSphinxHopIterator converts a processed packet returned from a sphinx
// router and converts it into an hop iterator for usage in the link.
func makeSphinxHopIterator(
	packet *sphinx.ProcessedPacket) *sphinxHopIterator {

	return &sphinxHopIterator{
		processedPacket: packet,
	}
}

// A compile time check to ensure sphinxHopIterator implements the Iterator
// interface.
var _ Iterator = (*sphinxHopIterator)(nil)

// ForwardingInfo returns the forwarding instructions decoded from our layer
// of the onion.
//
// NOTE: Part of the Iterator interface.
func (r *sphinxHopIterator) ForwardingInfo() ForwardingInfo {
	fwd := r.processedPacket.ForwardingInstructions

	return ForwardingInfo{
		NextHop:         fwd.NextAddress,
		AmountToForward: fwd.AmtToForward,
		OutgoingCTLV:    fwd.OutgoingCltv,
	}
}

// IsExitHop returns true if the onion has no layer left for another hop.
//
// NOTE: Part of the Iterator interface.
func (r *sphinxHopIterator) IsExitHop() bool {
	return r.processedPacket.Action == sphinx.ExitNode
}

// EncodeNextHop encodes the sphinx packet which is destined for the next
// hop into the passed io.Writer.
//
// NOTE: Part of the Iterator interface.
func (r *sphinxHopIterator) EncodeNextHop(w io.Writer) error {
	return r.processedPacket.NextPacket.Encode(w)
}

// ExtractErrorEncrypter returns the error encrypter bound to the secret we
// share with the sender.
//
// NOTE: Part of the Iterator interface.
func (r *sphinxHopIterator) ExtractErrorEncrypter() *sphinx.OnionErrorEncrypter {
	return sphinx.NewOnionErrorEncrypter(r.processedPacket.SharedSecret)
}

// OnionProcessor is responsible for keeping all sphinx dependent parts inside
// and expose only decoding function. With such approach we give freedom for
// subsystems which wants to decode sphinx path to not be dependable from
// sphinx at all.
type OnionProcessor struct {
	nodeKey keychain.SingleKeyECDH
}

// NewOnionProcessor creates new instance of decoder for the node holding
// nodeKey.
func NewOnionProcessor(nodeKey keychain.SingleKeyECDH) *OnionProcessor {
	return &OnionProcessor{nodeKey: nodeKey}
}

// DecodeHopIterator attempts to decode a valid sphinx packet from the passed
// io.Reader instance using the associated data. If the packet can't be
// decoded or processed, the failure code to send back is returned instead.
func (p *OnionProcessor) DecodeHopIterator(r io.Reader,
	assocData []byte) (Iterator, lnwire.FailCode) {

	onionPkt := &sphinx.OnionPacket{}
	if err := onionPkt.Decode(r); err != nil {
		code := decodeFailCode(err)
		log.Errorf("Unable to decode onion packet: %v", err)
		monitoring.IncOnionFailure(code.String())

		return nil, code
	}

	// Attempt to process the Sphinx packet. The payment hash of the HTLC
	// is passed as associated data, so it is authenticated within the
	// packet itself.
	sphinxPacket, err := sphinx.ProcessOnionPacket(
		onionPkt, assocData, p.nodeKey,
	)
	if err != nil {
		code := processFailCode(err)
		log.Errorf("Unable to process onion packet: %v", err)
		monitoring.IncOnionFailure(code.String())

		return nil, code
	}

	return makeSphinxHopIterator(sphinxPacket), lnwire.CodeNone
}

// decodeFailCode maps an error of parsing an onion to the failure code
// reported upstream.
func decodeFailCode(err error) lnwire.FailCode {
	switch {
	case errors.Is(err, sphinx.ErrInvalidOnionVersion):
		return lnwire.CodeInvalidOnionVersion

	default:
		return lnwire.CodeInvalidOnionKey
	}
}

// processFailCode maps an error of peeling an onion to the failure code
// reported upstream.
func processFailCode(err error) lnwire.FailCode {
	switch {
	case errors.Is(err, sphinx.ErrInvalidOnionVersion):
		return lnwire.CodeInvalidOnionVersion

	case errors.Is(err, sphinx.ErrInvalidOnionHMAC):
		return lnwire.CodeInvalidOnionHmac

	case errors.Is(err, sphinx.ErrUnsupportedRealm):
		return lnwire.CodeInvalidRealm

	default:
		return lnwire.CodeInvalidOnionKey
	}
}
