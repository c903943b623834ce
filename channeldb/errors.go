package channeldb

import "errors"

var (
	// ErrWrongChain is returned when a gossip message announces a channel
	// on a chain other than the one the graph tracks.
	ErrWrongChain = errors.New("message is for a different chain")

	// ErrGraphNotConfigured is returned when a graph is created without
	// the collaborators it depends on.
	ErrGraphNotConfigured = errors.New("graph config is incomplete")

	// ErrGraphNotStarted is returned when announcements are handed to a
	// graph that hasn't been started yet.
	ErrGraphNotStarted = errors.New("channel graph not started")

	// ErrGraphShuttingDown is returned when the graph is asked to do work
	// after it has been stopped.
	ErrGraphShuttingDown = errors.New("channel graph shutting down")

	// ErrCorruptRecord is returned when a persisted channel record can't
	// be decoded.
	ErrCorruptRecord = errors.New("corrupt channel record")
)
