package routing

import (
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/routing/route"
)

// NewRouteFromEdges computes the amounts and timelocks of a route over the
// given edges that delivers amt to the last node with a final timelock of
// currentHeight+finalCltvDelta. We walk the edges backwards: the amount and
// timelock a hop must receive is what it forwards plus the fee and timelock
// delta of the channel it forwards over. The first edge is our own channel,
// so its policy is never charged.
func NewRouteFromEdges(source route.Vertex, edges []*RouteEdge,
	amt lnwire.MilliSatoshi, finalCltvDelta uint16,
	currentHeight uint32) (*route.Route, error) {

	if len(edges) == 0 {
		return nil, route.ErrNoRouteHopsProvided
	}

	var (
		hops         = make([]*route.Hop, len(edges))
		incomingAmt  lnwire.MilliSatoshi
		incomingCltv uint32
	)

	for i := len(edges) - 1; i >= 0; i-- {
		edge := edges[i]

		hop := &route.Hop{
			PubKeyBytes: edge.NodeID,
			ChannelID:   edge.ChannelID,
		}

		// The final hop receives exactly the payment amount and the
		// final timelock. Every other hop forwards what the next hop
		// needs to receive.
		if i == len(edges)-1 {
			hop.AmtToForward = amt
			hop.OutgoingTimeLock = currentHeight +
				uint32(finalCltvDelta)

			incomingAmt = hop.AmtToForward
			incomingCltv = hop.OutgoingTimeLock
		} else {
			hop.AmtToForward = incomingAmt
			hop.OutgoingTimeLock = incomingCltv

			// The node of this hop forwards over the next edge,
			// so that edge's policy sets its fee and delta.
			policy := edges[i+1].Policy
			if policy == nil {
				return nil, &RouteError{
					Code:      ErrMissingPolicy,
					ChannelID: edges[i+1].ChannelID,
				}
			}

			incomingAmt = hop.AmtToForward +
				policy.ComputeFee(hop.AmtToForward)
			incomingCltv = hop.OutgoingTimeLock +
				uint32(policy.TimeLockDelta)
		}

		hops[i] = hop
	}

	return route.NewRouteFromHops(incomingAmt, incomingCltv, source, hops)
}
