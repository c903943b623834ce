package routing

import (
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnrouter/routing/route"
)

// nodeWithDist is a helper struct that couples the distance from the current
// source to a node with a pointer to the node itself. Nodes may be pushed
// onto the distance queue more than once, the caller skips entries whose
// distance is stale once they are popped.
type nodeWithDist struct {
	// dist is the distance to this node from the source node in our
	// current context.
	dist float64

	// node is the vertex itself.
	node route.Vertex
}

// A compile time check to ensure nodeWithDist can be queued.
var _ queue.PriorityQueueItem = (*nodeWithDist)(nil)

// Less returns whether this node is closer to the source than other.
//
// NOTE: This is part of the queue.PriorityQueueItem interface.
func (n *nodeWithDist) Less(other queue.PriorityQueueItem) bool {
	return n.dist < other.(*nodeWithDist).dist
}
