package routing

import (
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnrouter/lnwire"
)

var (
	// ErrNoPathFound is returned when a path to the target destination
	// does not exist in the graph.
	ErrNoPathFound = errors.New("unable to find a path to destination")

	// ErrChannelVanished is the code of a RouteError raised when a channel
	// of a path is no longer part of the graph.
	ErrChannelVanished = errors.New("channel vanished from graph")

	// ErrPolicyVanished is the code of a RouteError raised when the
	// forwarding node of a path no longer has a policy for its channel.
	ErrPolicyVanished = errors.New("channel policy vanished from graph")

	// ErrMissingPolicy is returned when a route is built from an edge that
	// carries no policy.
	ErrMissingPolicy = errors.New("route edge has no policy")
)

// RouteError is returned when a previously found path can't be turned into a
// route because the graph changed underneath it.
type RouteError struct {
	// Code is the reason the route couldn't be built, either
	// ErrChannelVanished or ErrPolicyVanished.
	Code error

	// ChannelID is the channel that caused the failure.
	ChannelID lnwire.ShortChannelID
}

// Error returns a human readable string describing the error.
func (e *RouteError) Error() string {
	return fmt.Sprintf("%v: %v", e.Code, e.ChannelID)
}

// Unwrap returns the error code, so that errors.Is can match against it.
func (e *RouteError) Unwrap() error {
	return e.Code
}
