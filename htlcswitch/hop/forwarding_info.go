package hop

import (
	"fmt"

	"github.com/lightningnetwork/lnrouter/channeldb/models"
	"github.com/lightningnetwork/lnrouter/lnwire"
)

var (
	// Exit is a special "hop" denoting that an incoming HTLC is meant to
	// pay finally to the receiving node.
	Exit lnwire.ShortChannelID
)

// ForwardingInfo contains all the information that is necessary to forward
// and incoming HTLC to the next hop encoded within a valid HopIterator
// instance. Forwarding links are to use this information to authenticate the
// information received within the incoming HTLC, to ensure that the prior hop
// didn't tamper with the end-to-end routing information at all.
type ForwardingInfo struct {
	// NextHop is the channel ID of the next hop. The received HTLC should
	// be forwarded to this particular channel in order to continue the
	// end-to-end route.
	NextHop lnwire.ShortChannelID

	// AmountToForward is the amount of milli-satoshis that the receiving
	// node should forward to the next hop.
	AmountToForward lnwire.MilliSatoshi

	// OutgoingCTLV is the specified value of the CTLV timelock to be used
	// in the outgoing HTLC.
	OutgoingCTLV uint32
}

// String returns a human readable version of the forwarding info.
func (f ForwardingInfo) String() string {
	return fmt.Sprintf("next_hop=%v, amt=%v, cltv=%v", f.NextHop,
		f.AmountToForward, f.OutgoingCTLV)
}

// CheckHtlcForward checks an incoming HTLC against the policy we advertise
// for the outgoing channel the onion asks us to forward over. The returned
// code is CodeNone if the HTLC pays our fee and leaves us our timelock
// delta.
func CheckHtlcForward(policy *models.ChannelEdgePolicy,
	incomingAmt lnwire.MilliSatoshi, incomingTimeout uint32,
	fwd ForwardingInfo) lnwire.FailCode {

	switch {
	case policy.IsDisabled():
		return lnwire.CodeChannelDisabled

	case fwd.AmountToForward < policy.MinHTLC:
		log.Debugf("Outgoing htlc(%v) is too small: min_htlc=%v",
			fwd.AmountToForward, policy.MinHTLC)

		return lnwire.CodeAmountBelowMinimum
	}

	// If the amount the HTLC carries doesn't leave us the fee we expect
	// after forwarding, reject it.
	expectedFee := policy.ComputeFee(fwd.AmountToForward)
	if incomingAmt < fwd.AmountToForward+expectedFee {
		log.Debugf("Incoming htlc(%v) has insufficient fee: "+
			"expected %v, got %v", incomingAmt, expectedFee,
			int64(incomingAmt)-int64(fwd.AmountToForward))

		return lnwire.CodeFeeInsufficient
	}

	// Finally, the outgoing timelock must be at least our delta below the
	// incoming one.
	if incomingTimeout < fwd.OutgoingCTLV+uint32(policy.TimeLockDelta) {
		log.Debugf("Incoming htlc has incorrect time-lock value: "+
			"expected at least %v, got %v",
			fwd.OutgoingCTLV+uint32(policy.TimeLockDelta),
			incomingTimeout)

		return lnwire.CodeIncorrectCltvExpiry
	}

	return lnwire.CodeNone
}
