package channeldb

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnrouter/lnwire"
)

// ChannelVerifier authenticates channel announcements on behalf of the graph.
// Implementations check the four signatures of the announcement and locate
// the funding output on chain. The graph never verifies anything itself.
type ChannelVerifier interface {
	// VerifyChannel returns the capacity of the announced channel's
	// funding output, or an error if the announcement is invalid or the
	// output can't be found. Implementations must return once ctx is
	// cancelled.
	VerifyChannel(ctx context.Context,
		msg *lnwire.ChannelAnnouncement) (btcutil.Amount, error)
}

// ChannelVerifierFunc is a function that implements the ChannelVerifier
// interface.
type ChannelVerifierFunc func(context.Context,
	*lnwire.ChannelAnnouncement) (btcutil.Amount, error)

// VerifyChannel calls f(ctx, msg).
//
// NOTE: This is part of the ChannelVerifier interface.
func (f ChannelVerifierFunc) VerifyChannel(ctx context.Context,
	msg *lnwire.ChannelAnnouncement) (btcutil.Amount, error) {

	return f(ctx, msg)
}
