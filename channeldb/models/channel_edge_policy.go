package models

import (
	"fmt"

	"github.com/lightningnetwork/lnrouter/lnwire"
)

// ChannelEdgePolicy represents a *directed* edge within the channel graph. For
// each channel in the database, there are two distinct edges: one for each
// possible direction of travel along the channel. The edges themselves hold
// information concerning fees, and minimum time-lock information which is
// utilized during path finding.
type ChannelEdgePolicy struct {
	// TimeLockDelta is the number of blocks this node will subtract from
	// the expiry of an incoming HTLC. This value expresses the time buffer
	// the node would like to HTLC exchanges.
	TimeLockDelta uint16

	// MinHTLC is the smallest value HTLC this node will forward, expressed
	// in millisatoshi.
	MinHTLC lnwire.MilliSatoshi

	// FeeBaseMSat is the base HTLC fee that will be charged for forwarding
	// ANY HTLC, expressed in mSAT's.
	FeeBaseMSat uint32

	// FeeProportionalMillionths is the rate that the node will charge for
	// HTLCs for each millionth of a satoshi forwarded.
	FeeProportionalMillionths uint32

	// Flags is a bitfield which signals the capabilities of the channel as
	// well as the directed edge this update applies to.
	Flags lnwire.ChanUpdateFlag
}

// NewChannelEdgePolicy extracts the policy a channel update announces.
func NewChannelEdgePolicy(msg *lnwire.ChannelUpdate) *ChannelEdgePolicy {
	return &ChannelEdgePolicy{
		TimeLockDelta:             msg.TimeLockDelta,
		MinHTLC:                   msg.HtlcMinimumMsat,
		FeeBaseMSat:               msg.BaseFee,
		FeeProportionalMillionths: msg.FeeRate,
		Flags:                     msg.Flags,
	}
}

// ComputeFee computes the fee to forward an HTLC of `amt` milli-satoshis over
// the passed active payment channel. This value is currently computed as
// specified in BOLT07, but will likely change in the near future.
func (c *ChannelEdgePolicy) ComputeFee(
	amt lnwire.MilliSatoshi) lnwire.MilliSatoshi {

	return lnwire.MilliSatoshi(c.FeeBaseMSat) +
		(amt*lnwire.MilliSatoshi(c.FeeProportionalMillionths))/1_000_000
}

// IsDisabled determines whether the edge has the disabled bit set.
func (c *ChannelEdgePolicy) IsDisabled() bool {
	return c.Flags&lnwire.ChanUpdateDisabled == lnwire.ChanUpdateDisabled
}

// String returns a human readable version of the policy.
func (c *ChannelEdgePolicy) String() string {
	return fmt.Sprintf("cltv_delta=%v, min_htlc=%v, base_fee=%v, "+
		"fee_rate=%v, flags=%v", c.TimeLockDelta, c.MinHTLC,
		c.FeeBaseMSat, c.FeeProportionalMillionths, uint16(c.Flags))
}
