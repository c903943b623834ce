package routing

import (
	"testing"

	"github.com/lightningnetwork/lnd/queue"
	"github.com/stretchr/testify/require"
)

// TestDistanceQueue checks nodes leave the queue closest first, including
// stale duplicates of the same node.
func TestDistanceQueue(t *testing.T) {
	t.Parallel()

	var pq queue.PriorityQueue
	for _, n := range []nodeWithDist{
		{dist: 7, node: nodeA},
		{dist: 2, node: nodeB},
		{dist: 5, node: nodeC},
		{dist: 1, node: nodeA},
		{dist: 3.5, node: nodeD},
	} {
		n := n
		pq.Push(&n)
	}

	var dists []float64
	for !pq.Empty() {
		dists = append(dists, pq.Pop().(*nodeWithDist).dist)
	}
	require.Equal(t, []float64{1, 2, 3.5, 5, 7}, dists)
}
