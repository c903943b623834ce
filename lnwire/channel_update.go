package lnwire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChanUpdateFlag is a bitfield that signals various options concerning a
// particular channel edge. Each bit is to be examined in order to determine
// how the ChannelUpdate message is to be interpreted.
type ChanUpdateFlag uint16

const (
	// ChanUpdateDirection indicates the direction of a channel update. If
	// this bit is set to 0 if Node1 (the node with the "smaller" Node ID)
	// is updating the channel, and to 1 otherwise.
	ChanUpdateDirection ChanUpdateFlag = 1 << iota

	// ChanUpdateDisabled is a bit that indicates if the channel edge
	// selected by the ChanUpdateDirection bit is to be treated as being
	// disabled.
	ChanUpdateDisabled
)

// IsDirection2 returns true if the update was issued by the second node of
// the channel.
func (c ChanUpdateFlag) IsDirection2() bool {
	return c&ChanUpdateDirection == ChanUpdateDirection
}

// channelUpdateSize is the fixed length of a serialized ChannelUpdate body.
const channelUpdateSize = 64 + 32 + 8 + 4 + 2 + 2 + 8 + 4 + 4

// ChannelUpdate message is used after channel has been initially announced.
// Each side independently announces its fees and minimum expiry for HTLCs and
// other parameters. Also this message is used to redeclare initially set
// channel parameters.
type ChannelUpdate struct {
	// Signature is used to validate the announced data and prove the
	// ownership of node id.
	Signature Sig

	// ChainHash denotes the target chain that this channel was opened
	// within. This value should be the genesis hash of the target chain.
	// Along with the short channel ID, this uniquely identifies the
	// channel globally in a blockchain.
	ChainHash chainhash.Hash

	// ShortChannelID is the unique description of the funding transaction.
	ShortChannelID ShortChannelID

	// Timestamp allows ordering in the case of multiple announcements. We
	// should ignore the message if timestamp is not greater than
	// the last-received.
	Timestamp uint32

	// Flags is a bitfield that describes additional meta-data concerning
	// how the update is to be interpreted.
	Flags ChanUpdateFlag

	// TimeLockDelta is the minimum number of blocks this node requires to
	// be added to the expiry of HTLCs. This is a security parameter
	// determined by the node operator. This value represents the required
	// gap between the time locks of the incoming and outgoing HTLC's set
	// to this node.
	TimeLockDelta uint16

	// HtlcMinimumMsat is the minimum HTLC value which will be accepted.
	HtlcMinimumMsat MilliSatoshi

	// BaseFee is the base fee that must be used for incoming HTLC's to
	// this particular channel. This value will be tacked onto the required
	// for a payment independent of the size of the payment.
	BaseFee uint32

	// FeeRate is the fee rate that will be charged per millionth of a
	// satoshi.
	FeeRate uint32
}

// A compile time check to ensure ChannelUpdate implements the lnwire.Message
// interface.
var _ Message = (*ChannelUpdate)(nil)

// Decode deserializes a serialized ChannelUpdate stored in the passed
// io.Reader observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (a *ChannelUpdate) Decode(r io.Reader, pver uint32) error {
	var b [channelUpdateSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}

	copy(a.Signature[:], b[:64])
	copy(a.ChainHash[:], b[64:96])
	a.ShortChannelID = NewShortChanIDFromInt(
		binary.BigEndian.Uint64(b[96:104]),
	)
	a.Timestamp = binary.BigEndian.Uint32(b[104:108])
	a.Flags = ChanUpdateFlag(binary.BigEndian.Uint16(b[108:110]))
	a.TimeLockDelta = binary.BigEndian.Uint16(b[110:112])
	a.HtlcMinimumMsat = MilliSatoshi(binary.BigEndian.Uint64(b[112:120]))
	a.BaseFee = binary.BigEndian.Uint32(b[120:124])
	a.FeeRate = binary.BigEndian.Uint32(b[124:128])

	return nil
}

// Encode serializes the target ChannelUpdate into the passed io.Writer
// observing the protocol version specified.
//
// This is part of the lnwire.Message interface.
func (a *ChannelUpdate) Encode(w *bytes.Buffer, pver uint32) error {
	var b [channelUpdateSize]byte

	copy(b[:64], a.Signature[:])
	copy(b[64:96], a.ChainHash[:])
	binary.BigEndian.PutUint64(b[96:104], a.ShortChannelID.ToUint64())
	binary.BigEndian.PutUint32(b[104:108], a.Timestamp)
	binary.BigEndian.PutUint16(b[108:110], uint16(a.Flags))
	binary.BigEndian.PutUint16(b[110:112], a.TimeLockDelta)
	binary.BigEndian.PutUint64(b[112:120], uint64(a.HtlcMinimumMsat))
	binary.BigEndian.PutUint32(b[120:124], a.BaseFee)
	binary.BigEndian.PutUint32(b[124:128], a.FeeRate)

	_, err := w.Write(b[:])
	return err
}

// MsgType returns the integer uniquely identifying this message type on the
// wire.
//
// This is part of the lnwire.Message interface.
func (a *ChannelUpdate) MsgType() MessageType {
	return MsgChannelUpdate
}
