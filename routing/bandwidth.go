package routing

import (
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/routing/route"
)

// bandwidthHints provides hints about the currently available balance in our
// channels.
type bandwidthHints interface {
	// availableChanBandwidth returns the total available bandwidth for a
	// channel and a bool indicating whether the channel hint was found.
	// If the channel is unavailable, a zero amount is returned.
	availableChanBandwidth(
		channelID lnwire.ShortChannelID) (lnwire.MilliSatoshi, bool)
}

// LocalChannel is the view path finding needs of one of our own channels.
type LocalChannel interface {
	// EligibleToForward returns true if the channel is able to carry
	// HTLCs right now.
	EligibleToForward() bool

	// Bandwidth returns the amount we can currently send over the
	// channel.
	Bandwidth() lnwire.MilliSatoshi
}

// LocalChannelQuery is the function signature used to look up one of our
// channels.
type LocalChannelQuery func(chanID lnwire.ShortChannelID) (LocalChannel,
	error)

// BandwidthManager is an implementation of the bandwidthHints interface which
// uses the channel lookup provided to query our latest local channel
// balances.
type BandwidthManager struct {
	graph      Graph
	sourceNode route.Vertex
	getChannel LocalChannelQuery
}

// NewBandwidthManager creates a bandwidth manager for the source node provided
// which is used to obtain hints from the lower layer w.r.t the available
// bandwidth of edges on the network. Currently, we'll only obtain bandwidth
// hints for the edges we directly have open ourselves. Obtaining these hints
// allows us to reduce the number of extraneous attempts as we can skip
// channels that are inactive, or just don't have enough bandwidth to carry
// the payment.
func NewBandwidthManager(graph Graph, sourceNode route.Vertex,
	query LocalChannelQuery) *BandwidthManager {

	return &BandwidthManager{
		graph:      graph,
		sourceNode: sourceNode,
		getChannel: query,
	}
}

// getBandwidth queries the current state of a channel and gets its currently
// available bandwidth. Note that this function assumes that the channel being
// queried is one of our local channels, so any failure to retrieve the
// channel is interpreted as the channel being offline.
func (b *BandwidthManager) getBandwidth(
	chanID lnwire.ShortChannelID) lnwire.MilliSatoshi {

	channel, err := b.getChannel(chanID)
	if err != nil {
		// If the channel isn't online, then we'll report that it has
		// zero bandwidth.
		log.Tracef("Local channel %v unavailable: %v", chanID, err)
		return 0
	}

	// If the channel is found, but it isn't yet eligible to forward any
	// HTLCs, then we'll treat it as if it isn't online in the first
	// place.
	if !channel.EligibleToForward() {
		return 0
	}

	// Otherwise, we'll return the current best estimate for the available
	// bandwidth for the channel.
	return channel.Bandwidth()
}

// availableChanBandwidth returns the total available bandwidth for a channel
// and a bool indicating whether the channel hint was found. If the channel is
// unavailable, a zero amount is returned.
//
// NOTE: This is part of the bandwidthHints interface.
func (b *BandwidthManager) availableChanBandwidth(
	channelID lnwire.ShortChannelID) (lnwire.MilliSatoshi, bool) {

	// Only channels the source node is an endpoint of are ours. The graph
	// is consulted on every query, so channels opened or closed since the
	// manager was created are taken into account.
	info, err := b.graph.ChannelInfo(channelID).UnwrapOrErr(
		ErrChannelVanished,
	)
	if err != nil {
		return 0, false
	}
	if info.NodeKey1Bytes != b.sourceNode &&
		info.NodeKey2Bytes != b.sourceNode {

		return 0, false
	}

	return b.getBandwidth(channelID), true
}
