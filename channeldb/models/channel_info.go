package models

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnrouter/fn"
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/routing/route"
)

// ErrUnorderedNodeKeys is returned when a channel's node keys aren't given in
// ascending order.
var ErrUnorderedNodeKeys = errors.New("node keys must be in ascending order")

// ChannelInfo represents a fully authenticated channel along with all its
// unique attributes. Once an authenticated channel announcement has been
// processed on the network, then an instance of ChannelInfo encapsulating the
// channels attributes is stored. The other portions relevant to routing
// policy of a channel are stored within a ChannelEdgePolicy for each
// direction of the channel.
type ChannelInfo struct {
	// ChannelID is the unique channel ID for the channel. The first 3
	// bytes are the block height, the next 3 the index within the block,
	// and the last 2 bytes are the output index for the channel.
	ChannelID lnwire.ShortChannelID

	// NodeKey1Bytes is the raw public key of the first node. It always
	// sorts before NodeKey2Bytes.
	NodeKey1Bytes route.Vertex

	// NodeKey2Bytes is the raw public key of the second node.
	NodeKey2Bytes route.Vertex

	// Capacity is the total capacity of the channel, known once the
	// funding output has been located on chain.
	Capacity fn.Option[btcutil.Amount]

	// Policy1 is the policy node 1 advertises for HTLCs leaving it over
	// the channel, if any.
	Policy1 *ChannelEdgePolicy

	// Policy2 is the policy node 2 advertises for HTLCs leaving it over
	// the channel, if any.
	Policy2 *ChannelEdgePolicy
}

// NewChannelInfo creates the record of a channel between two nodes whose keys
// must be given in ascending order.
func NewChannelInfo(chanID lnwire.ShortChannelID, node1,
	node2 route.Vertex) (*ChannelInfo, error) {

	if bytes.Compare(node1[:], node2[:]) >= 0 {
		return nil, ErrUnorderedNodeKeys
	}

	return &ChannelInfo{
		ChannelID:     chanID,
		NodeKey1Bytes: node1,
		NodeKey2Bytes: node2,
		Capacity:      fn.None[btcutil.Amount](),
	}, nil
}

// NewChannelInfoFromAnnouncement creates the record of an announced channel.
func NewChannelInfoFromAnnouncement(
	msg *lnwire.ChannelAnnouncement) (*ChannelInfo, error) {

	return NewChannelInfo(
		msg.ShortChannelID, msg.Node1KeyBytes(), msg.Node2KeyBytes(),
	)
}

// SetCapacity records the capacity of the channel's funding output.
func (c *ChannelInfo) SetCapacity(capacity btcutil.Amount) {
	c.Capacity = fn.Some(capacity)
}

// ApplyUpdate stores the policy of a channel update, replacing whatever the
// node of the update's direction advertised before.
func (c *ChannelInfo) ApplyUpdate(msg *lnwire.ChannelUpdate) {
	policy := NewChannelEdgePolicy(msg)
	if msg.Flags.IsDirection2() {
		c.Policy2 = policy
		return
	}

	c.Policy1 = policy
}

// PolicyForNode returns the policy the given node advertises for the channel,
// or nil if the node hasn't published one or isn't part of the channel.
func (c *ChannelInfo) PolicyForNode(node route.Vertex) *ChannelEdgePolicy {
	switch node {
	case c.NodeKey1Bytes:
		return c.Policy1

	case c.NodeKey2Bytes:
		return c.Policy2

	default:
		return nil
	}
}

// OtherNodeKeyBytes returns the node key bytes of the other end of the
// channel.
func (c *ChannelInfo) OtherNodeKeyBytes(thisNodeKey route.Vertex) (
	route.Vertex, error) {

	switch thisNodeKey {
	case c.NodeKey1Bytes:
		return c.NodeKey2Bytes, nil
	case c.NodeKey2Bytes:
		return c.NodeKey1Bytes, nil
	default:
		return route.Vertex{}, errors.New("node not participating in " +
			"this channel")
	}
}

// Copy returns a deep copy of the channel info.
func (c *ChannelInfo) Copy() *ChannelInfo {
	cp := *c
	if c.Policy1 != nil {
		p := *c.Policy1
		cp.Policy1 = &p
	}
	if c.Policy2 != nil {
		p := *c.Policy2
		cp.Policy2 = &p
	}

	return &cp
}
