package routing

import (
	"errors"
	"testing"

	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/routing/route"
	"github.com/stretchr/testify/require"
)

// TestNewRouteFromEdges checks that fees and timelock deltas are charged by
// every forwarding hop, working backwards from the receiver.
func TestNewRouteFromEdges(t *testing.T) {
	t.Parallel()

	source := vertex(9)
	edges := []*RouteEdge{
		{
			NodeID:    nodeA,
			ChannelID: scid(1),
			Policy:    policy(144, 5000, 5000),
		},
		{
			NodeID:    nodeB,
			ChannelID: scid(2),
			Policy:    policy(40, 1000, 1000),
		},
		{
			NodeID:    nodeC,
			ChannelID: scid(3),
			Policy:    policy(20, 100, 0),
		},
	}

	r, err := NewRouteFromEdges(source, edges, 1_000_000, 9, 100)
	require.NoError(t, err)

	require.Equal(t, source, r.SourcePubKey)
	require.Equal(t, []*route.Hop{
		{
			PubKeyBytes:      nodeA,
			ChannelID:        scid(1),
			AmtToForward:     1_000_100,
			OutgoingTimeLock: 129,
		},
		{
			PubKeyBytes:      nodeB,
			ChannelID:        scid(2),
			AmtToForward:     1_000_000,
			OutgoingTimeLock: 109,
		},
		{
			PubKeyBytes:      nodeC,
			ChannelID:        scid(3),
			AmtToForward:     1_000_000,
			OutgoingTimeLock: 109,
		},
	}, r.Hops)

	require.Equal(t, lnwire.MilliSatoshi(1_002_100), r.TotalAmount)
	require.Equal(t, uint32(169), r.TotalTimeLock)
	require.Equal(t, lnwire.MilliSatoshi(1_000_000), r.ReceiverAmt())
	require.Equal(t, lnwire.MilliSatoshi(2100), r.TotalFees())
}

// TestNewRouteFromEdgesSingleHop checks that paying a direct peer costs no
// fee.
func TestNewRouteFromEdgesSingleHop(t *testing.T) {
	t.Parallel()

	edges := []*RouteEdge{{
		NodeID:    nodeB,
		ChannelID: scid(1),
		Policy:    policy(144, 5000, 5000),
	}}

	r, err := NewRouteFromEdges(nodeA, edges, 5000, 18, 500_000)
	require.NoError(t, err)

	require.Equal(t, lnwire.MilliSatoshi(5000), r.TotalAmount)
	require.Equal(t, uint32(500_018), r.TotalTimeLock)
	require.Zero(t, r.TotalFees())
}

// TestNewRouteFromEdgesErrors checks the rejected inputs.
func TestNewRouteFromEdgesErrors(t *testing.T) {
	t.Parallel()

	_, err := NewRouteFromEdges(nodeA, nil, 1000, 9, 100)
	require.ErrorIs(t, err, route.ErrNoRouteHopsProvided)

	edges := []*RouteEdge{
		{NodeID: nodeB, ChannelID: scid(1)},
		{NodeID: nodeC, ChannelID: scid(2)},
	}
	_, err = NewRouteFromEdges(nodeA, edges, 1000, 9, 100)
	require.ErrorIs(t, err, ErrMissingPolicy)

	var routeErr *RouteError
	require.True(t, errors.As(err, &routeErr))
	require.Equal(t, scid(2), routeErr.ChannelID)
}
