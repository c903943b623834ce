package sphinx

import (
	"bytes"
	"testing"

	sphinx "github.com/lightningnetwork/lightning-onion"
	"github.com/stretchr/testify/require"
)

// TestOnionPacketCompatibility checks that packets are byte for byte the
// ones lightning-onion produces for legacy payloads.
func TestOnionPacketCompatibility(t *testing.T) {
	t.Parallel()

	for _, numHops := range []int{1, 2, 5, NumMaxHops} {
		route := newTestRoute(t, numHops)

		var refPath sphinx.PaymentPath
		for i, hop := range route.hops {
			refHop := sphinx.HopData{
				ForwardAmount: uint64(hop.ForwardingInfo.AmtToForward),
				OutgoingCltv:  hop.ForwardingInfo.OutgoingCltv,
			}
			nextAddr := hop.ForwardingInfo.NextAddress.Bytes()
			copy(refHop.NextAddress[:], nextAddr[:])

			payload, err := sphinx.NewHopPayload(&refHop, nil)
			require.NoError(t, err)

			refPath[i] = sphinx.OnionHop{
				NodePub:    *route.path[i],
				HopPayload: payload,
			}
		}

		refPkt, err := sphinx.NewOnionPacket(
			&refPath, route.sessionKey, testAssocData,
			sphinx.BlankPacketFiller,
		)
		require.NoError(t, err)

		var want bytes.Buffer
		require.NoError(t, refPkt.Encode(&want))

		pkt, err := NewOnionPacket(
			route.path, route.sessionKey, route.hops, testAssocData,
		)
		require.NoError(t, err)

		var got bytes.Buffer
		require.NoError(t, pkt.Encode(&got))

		require.Equal(t, want.Bytes(), got.Bytes(), "%d hops", numHops)
	}
}
