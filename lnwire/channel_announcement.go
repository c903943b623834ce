package lnwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Sig is a fixed-sized ECDSA signature. Unlike Bitcoin, we use fixed sized
// signatures on the wire, instead of DER encoded signatures. Signatures are
// carried opaquely by this package, verification happens elsewhere.
type Sig [64]byte

// ChannelAnnouncement message is used to announce the existence of a channel
// between two peers in the overlay, which is propagated by the discovery
// service over broadcast handler.
type ChannelAnnouncement struct {
	// This signatures are used by nodes in order to create cross
	// references between node's channel and node. Requiring both nodes
	// to sign indicates they are both willing to route other payments via
	// this node.
	NodeSig1 Sig
	NodeSig2 Sig

	// This signatures are used by nodes in order to create cross
	// references between node's channel and node. Requiring the bitcoin
	// signatures proves they control the channel.
	BitcoinSig1 Sig
	BitcoinSig2 Sig

	// Features is the feature vector that encodes the features supported
	// by the target node. This field can be used to signal the type of the
	// channel, or modifications to the fields that would normally follow
	// this vector.
	Features []byte

	// ChainHash denotes the target chain that this channel was opened
	// within. This value should be the genesis hash of the target chain.
	ChainHash chainhash.Hash

	// ShortChannelID is the unique description of the funding
	// transaction.
	ShortChannelID ShortChannelID

	// The public keys of the two nodes who are operating the channel, such
	// that is NodeID1 the numerically-lesser than NodeID2 (ascending
	// numerical order).
	NodeID1 [33]byte
	NodeID2 [33]byte

	// Public keys which corresponds to the keys which was declared in
	// multisig funding transaction output.
	BitcoinKey1 [33]byte
	BitcoinKey2 [33]byte
}

// A compile time check to ensure ChannelAnnouncement implements the
// lnwire.Message interface.
var _ Message = (*ChannelAnnouncement)(nil)

// Decode deserializes a serialized ChannelAnnouncement stored in the passed
// io.Reader observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (a *ChannelAnnouncement) Decode(r io.Reader, pver uint32) error {
	sigs := []*Sig{
		&a.NodeSig1, &a.NodeSig2, &a.BitcoinSig1, &a.BitcoinSig2,
	}
	for _, sig := range sigs {
		if _, err := io.ReadFull(r, sig[:]); err != nil {
			return err
		}
	}

	var featLen [2]byte
	if _, err := io.ReadFull(r, featLen[:]); err != nil {
		return err
	}
	a.Features = make([]byte, binary.BigEndian.Uint16(featLen[:]))
	if _, err := io.ReadFull(r, a.Features); err != nil {
		return err
	}

	if _, err := io.ReadFull(r, a.ChainHash[:]); err != nil {
		return err
	}

	var scid [8]byte
	if _, err := io.ReadFull(r, scid[:]); err != nil {
		return err
	}
	a.ShortChannelID = NewShortChanIDFromInt(
		binary.BigEndian.Uint64(scid[:]),
	)

	keys := []*[33]byte{
		&a.NodeID1, &a.NodeID2, &a.BitcoinKey1, &a.BitcoinKey2,
	}
	for _, key := range keys {
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return err
		}
	}

	return nil
}

// Encode serializes the target ChannelAnnouncement into the passed io.Writer
// observing the protocol version specified.
//
// This is part of the lnwire.Message interface.
func (a *ChannelAnnouncement) Encode(w *bytes.Buffer, pver uint32) error {
	if len(a.Features) > 0xffff {
		return fmt.Errorf("feature vector too large: %d bytes",
			len(a.Features))
	}

	for _, sig := range []Sig{
		a.NodeSig1, a.NodeSig2, a.BitcoinSig1, a.BitcoinSig2,
	} {
		w.Write(sig[:])
	}

	var featLen [2]byte
	binary.BigEndian.PutUint16(featLen[:], uint16(len(a.Features)))
	w.Write(featLen[:])
	w.Write(a.Features)

	w.Write(a.ChainHash[:])

	scid := a.ShortChannelID.Bytes()
	w.Write(scid[:])

	for _, key := range [][33]byte{
		a.NodeID1, a.NodeID2, a.BitcoinKey1, a.BitcoinKey2,
	} {
		w.Write(key[:])
	}

	return nil
}

// MsgType returns the integer uniquely identifying this message type on the
// wire.
//
// This is part of the lnwire.Message interface.
func (a *ChannelAnnouncement) MsgType() MessageType {
	return MsgChannelAnnouncement
}

// SCID returns the short channel ID of the channel being announced.
func (a *ChannelAnnouncement) SCID() ShortChannelID {
	return a.ShortChannelID
}

// GetChainHash returns the hash of the chain which this channel belongs to.
func (a *ChannelAnnouncement) GetChainHash() chainhash.Hash {
	return a.ChainHash
}

// Node1KeyBytes returns the bytes representing the public key of node 1 in the
// channel.
func (a *ChannelAnnouncement) Node1KeyBytes() [33]byte {
	return a.NodeID1
}

// Node2KeyBytes returns the bytes representing the public key of node 2 in the
// channel.
func (a *ChannelAnnouncement) Node2KeyBytes() [33]byte {
	return a.NodeID2
}
