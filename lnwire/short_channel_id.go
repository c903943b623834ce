package lnwire

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ShortChannelID represents the set of data which is needed to retrieve all
// necessary data to validate the channel existence.
type ShortChannelID struct {
	// BlockHeight is the height of the block where funding transaction
	// located.
	//
	// NOTE: This field is limited to 3 bytes.
	BlockHeight uint32

	// TxIndex is a position of funding transaction within a block.
	//
	// NOTE: This field is limited to 3 bytes.
	TxIndex uint32

	// TxPosition indicating transaction output which pays to the channel.
	TxPosition uint16
}

// NewShortChanIDFromInt returns a new ShortChannelID which is the decoded
// version of the compact channel ID encoded within the uint64. The format of
// the compact channel ID is as follows: 3 bytes for the block height, 3 bytes
// for the transaction index, and 2 bytes for the output index.
func NewShortChanIDFromInt(chanID uint64) ShortChannelID {
	return ShortChannelID{
		BlockHeight: uint32(chanID >> 40),
		TxIndex:     uint32(chanID>>16) & 0xFFFFFF,
		TxPosition:  uint16(chanID),
	}
}

// NewShortChanIDFromBytes decodes the 8 byte big-endian wire form of a short
// channel ID.
func NewShortChanIDFromBytes(b []byte) (ShortChannelID, error) {
	if len(b) != 8 {
		return ShortChannelID{}, fmt.Errorf("short channel id must "+
			"be 8 bytes, got %d", len(b))
	}

	return NewShortChanIDFromInt(binary.BigEndian.Uint64(b)), nil
}

// NewShortChanIDFromHex decodes the hex encoding of the 8 byte wire form.
func NewShortChanIDFromHex(s string) (ShortChannelID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ShortChannelID{}, err
	}

	return NewShortChanIDFromBytes(b)
}

// NewShortChanIDFromString parses the human readable "height:index:pos" (or
// "heightxindexxpos") representation.
func NewShortChanIDFromString(str string) (ShortChannelID, error) {
	parts := strings.Split(str, ":")
	if len(parts) != 3 {
		parts = strings.Split(str, "x")
	}
	if len(parts) != 3 {
		return ShortChannelID{}, fmt.Errorf("unable to parse short "+
			"channel id %q, expected 123:45:6 or 123x45x6", str)
	}

	height, err := strconv.ParseUint(parts[0], 10, 24)
	if err != nil {
		return ShortChannelID{}, fmt.Errorf("block height: %w", err)
	}
	txIndex, err := strconv.ParseUint(parts[1], 10, 24)
	if err != nil {
		return ShortChannelID{}, fmt.Errorf("tx index: %w", err)
	}
	txPos, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return ShortChannelID{}, fmt.Errorf("tx position: %w", err)
	}

	return ShortChannelID{
		BlockHeight: uint32(height),
		TxIndex:     uint32(txIndex),
		TxPosition:  uint16(txPos),
	}, nil
}

// ToUint64 converts the ShortChannelID into a compact format encoded within a
// uint64 (8 bytes).
func (c ShortChannelID) ToUint64() uint64 {
	return ((uint64(c.BlockHeight) << 40) | (uint64(c.TxIndex) << 16) |
		(uint64(c.TxPosition)))
}

// Bytes returns the 8 byte big-endian wire encoding of the ShortChannelID.
func (c ShortChannelID) Bytes() [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], c.ToUint64())
	return b
}

// Hex returns the hex encoding of the wire form, as used for persisted keys.
func (c ShortChannelID) Hex() string {
	b := c.Bytes()
	return hex.EncodeToString(b[:])
}

// String generates a human-readable representation of the channel ID.
func (c ShortChannelID) String() string {
	return fmt.Sprintf("%d:%d:%d", c.BlockHeight, c.TxIndex, c.TxPosition)
}
