package lnwire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// TestShortChannelIDEncoding checks the conversions between the integer, wire,
// hex and human readable forms of a short channel id.
func TestShortChannelIDEncoding(t *testing.T) {
	t.Parallel()

	scid := ShortChannelID{
		BlockHeight: 539268,
		TxIndex:     845,
		TxPosition:  1,
	}

	require.Equal(t, uint64(0x83a8400034d0001), scid.ToUint64())
	require.Equal(t, scid, NewShortChanIDFromInt(scid.ToUint64()))
	require.Equal(t, "539268:845:1", scid.String())
	require.Equal(t, "083a8400034d0001", scid.Hex())

	b := scid.Bytes()
	fromBytes, err := NewShortChanIDFromBytes(b[:])
	require.NoError(t, err)
	require.Equal(t, scid, fromBytes)

	fromHex, err := NewShortChanIDFromHex(scid.Hex())
	require.NoError(t, err)
	require.Equal(t, scid, fromHex)

	for _, str := range []string{"539268:845:1", "539268x845x1"} {
		fromStr, err := NewShortChanIDFromString(str)
		require.NoError(t, err)
		require.Equal(t, scid, fromStr)
	}
}

// TestShortChannelIDParseErrors checks that malformed short channel ids are
// rejected.
func TestShortChannelIDParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		parse func() error
	}{
		{
			name: "short bytes",
			parse: func() error {
				_, err := NewShortChanIDFromBytes([]byte{1, 2})
				return err
			},
		},
		{
			name: "invalid hex",
			parse: func() error {
				_, err := NewShortChanIDFromHex("zz")
				return err
			},
		},
		{
			name: "two parts",
			parse: func() error {
				_, err := NewShortChanIDFromString("1:2")
				return err
			},
		},
		{
			name: "height overflow",
			parse: func() error {
				_, err := NewShortChanIDFromString("16777216:0:0")
				return err
			},
		},
		{
			name: "position overflow",
			parse: func() error {
				_, err := NewShortChanIDFromString("1:1:65536")
				return err
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			require.Error(t, testCase.parse())
		})
	}
}

// TestMilliSatoshiConversion checks the conversions from and to satoshis.
func TestMilliSatoshiConversion(t *testing.T) {
	t.Parallel()

	require.Equal(t, MilliSatoshi(5_000), NewMSatFromSatoshis(5))
	require.Equal(t, btcutil.Amount(5), MilliSatoshi(5_999).ToSatoshis())
	require.Equal(t, "1000 mSAT", MilliSatoshi(1000).String())
}

func testAnnouncement() *ChannelAnnouncement {
	ann := &ChannelAnnouncement{
		Features:       []byte{0x01, 0x02},
		ChainHash:      *chaincfg.MainNetParams.GenesisHash,
		ShortChannelID: NewShortChanIDFromInt(0x0102030405060708),
	}
	ann.NodeSig1[0] = 1
	ann.BitcoinSig2[63] = 2
	ann.NodeID1[0] = 0x02
	ann.NodeID2[0] = 0x03
	ann.BitcoinKey1[32] = 0x04
	ann.BitcoinKey2[32] = 0x05

	return ann
}

func testChannelUpdate() *ChannelUpdate {
	return &ChannelUpdate{
		ChainHash:       *chaincfg.MainNetParams.GenesisHash,
		ShortChannelID:  NewShortChanIDFromInt(42),
		Timestamp:       1530403200,
		Flags:           ChanUpdateDirection | ChanUpdateDisabled,
		TimeLockDelta:   144,
		HtlcMinimumMsat: 1000,
		BaseFee:         1000,
		FeeRate:         1,
	}
}

// TestMessageEncoding checks that gossip messages survive the wire and that
// fields end up at their protocol offsets.
func TestMessageEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		msg   Message
		size  int
		check func(t *testing.T, body []byte)
	}{
		{
			name: "channel announcement",
			msg:  testAnnouncement(),
			size: 4*64 + 2 + 2 + 32 + 8 + 4*33,
			check: func(t *testing.T, body []byte) {
				require.Equal(t, uint16(2),
					binary.BigEndian.Uint16(body[256:258]))
				require.Equal(t,
					chaincfg.MainNetParams.GenesisHash[:],
					body[260:292])
				require.Equal(t, uint64(0x0102030405060708),
					binary.BigEndian.Uint64(body[292:300]))
				require.Equal(t, byte(0x02), body[300])
				require.Equal(t, byte(0x03), body[333])
			},
		},
		{
			name: "channel update",
			msg:  testChannelUpdate(),
			size: channelUpdateSize,
			check: func(t *testing.T, body []byte) {
				require.Equal(t, uint64(42),
					binary.BigEndian.Uint64(body[96:104]))
				require.Equal(t, uint16(3),
					binary.BigEndian.Uint16(body[108:110]))
				require.Equal(t, uint16(144),
					binary.BigEndian.Uint16(body[110:112]))
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			var b bytes.Buffer
			n, err := WriteMessage(&b, testCase.msg, 0)
			require.NoError(t, err)
			require.Equal(t, 2+testCase.size, n)
			require.Equal(t, 2+testCase.size, b.Len())

			raw := b.Bytes()
			require.Equal(t, uint16(testCase.msg.MsgType()),
				binary.BigEndian.Uint16(raw[:2]))
			testCase.check(t, raw[2:])

			msg, err := ReadMessage(bytes.NewReader(raw), 0)
			require.NoError(t, err)
			require.Equal(t, testCase.msg, msg)

			// A truncated message must not decode.
			_, err = ReadMessage(
				bytes.NewReader(raw[:len(raw)-1]), 0,
			)
			require.Error(t, err)
		})
	}
}

// TestReadUnknownMessage checks that unknown message types are reported.
func TestReadUnknownMessage(t *testing.T) {
	t.Parallel()

	_, err := ReadMessage(bytes.NewReader([]byte{0x00, 0x10, 0x00}), 0)

	var unknown *UnknownMessage
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, MessageType(16), unknown.messageType)
}

// TestChanUpdateFlags checks the direction and disabled bits.
func TestChanUpdateFlags(t *testing.T) {
	t.Parallel()

	require.False(t, ChanUpdateFlag(0).IsDirection2())
	require.False(t, ChanUpdateDisabled.IsDirection2())
	require.True(t, (ChanUpdateDirection | ChanUpdateDisabled).IsDirection2())
}

// TestFailureMessage checks failure decoding and the classification of
// failure codes.
func TestFailureMessage(t *testing.T) {
	t.Parallel()

	failure := NewFailureMessage(CodeFeeInsufficient, []byte{0xaa, 0xbb})
	raw := failure.Encode()
	require.Equal(t, []byte{0x10, 0x0c, 0xaa, 0xbb}, raw)

	decoded, err := DecodeFailureMessage(raw)
	require.NoError(t, err)
	require.Equal(t, failure, decoded)
	require.Equal(t, "FeeInsufficient", decoded.Code.String())

	_, err = DecodeFailureMessage([]byte{0x10})
	require.Error(t, err)

	require.True(t, CodeInvalidOnionHmac.IsBadOnion())
	require.True(t, CodeInvalidOnionHmac.IsPermanent())
	require.False(t, CodeTemporaryChannelFailure.IsBadOnion())
	require.False(t, CodeTemporaryChannelFailure.IsPermanent())
	require.Equal(t, "<unknown>", FailCode(0xffff).String())
}
