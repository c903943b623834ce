package routing

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnrouter/channeldb/models"
	"github.com/lightningnetwork/lnrouter/fn"
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/monitoring"
	"github.com/lightningnetwork/lnrouter/routing/route"
)

const (
	// DefaultFeeDivisor converts a fee in satoshis into cost units. Paying
	// ten more satoshis weighs as much as waiting one more block.
	DefaultFeeDivisor = 10

	// DefaultHopPenalty is the fixed cost added for every hop of a path.
	DefaultHopPenalty = 1

	// DefaultPaymentAmount is the amount used to estimate proportional
	// fees when the caller doesn't name the payment amount.
	DefaultPaymentAmount lnwire.MilliSatoshi = 50_000_000
)

// infinity is the cost of an edge that can't be used.
var infinity = math.Inf(1)

// Graph is the read-only view of the channel graph path finding runs on.
type Graph interface {
	// ChannelInfo returns a copy of the channel with the given id.
	ChannelInfo(scid lnwire.ShortChannelID) fn.Option[models.ChannelInfo]

	// ChannelsForNode returns the ids of the channels the node is an
	// endpoint of.
	ChannelsForNode(node route.Vertex) fn.Set[lnwire.ShortChannelID]
}

// CostConfig holds the heuristics used to weigh a channel during path
// finding.
type CostConfig struct {
	// FeeDivisor is the number of satoshis of fees that cost as much as
	// one block of timelock.
	FeeDivisor float64

	// HopPenalty is added to the cost of every edge, so that shorter
	// paths win between otherwise equal candidates.
	HopPenalty float64

	// DefaultPaymentAmount is used to estimate the proportional fee of a
	// channel when no payment amount is given.
	DefaultPaymentAmount lnwire.MilliSatoshi
}

// DefaultCostConfig returns the cost heuristics used when nothing else is
// configured.
func DefaultCostConfig() *CostConfig {
	return &CostConfig{
		FeeDivisor:           DefaultFeeDivisor,
		HopPenalty:           DefaultHopPenalty,
		DefaultPaymentAmount: DefaultPaymentAmount,
	}
}

// PathEdge is one step of a path: the node arrived at and the channel
// travelled through to get there.
type PathEdge = fn.T2[route.Vertex, lnwire.ShortChannelID]

// RouteEdge is a step of a path with the forwarding policy resolved. If you
// travel through ChannelID, you will reach NodeID, paying the fee of Policy.
type RouteEdge struct {
	// NodeID is the node reached through the channel.
	NodeID route.Vertex

	// ChannelID is the channel travelled through.
	ChannelID lnwire.ShortChannelID

	// Policy is the policy the node at the start of the channel advertises
	// for it.
	Policy *models.ChannelEdgePolicy
}

// PathFinder computes cost-minimal paths over a channel graph.
type PathFinder struct {
	graph     Graph
	cfg       *CostConfig
	bandwidth bandwidthHints

	blacklistMtx sync.RWMutex
	blacklist    fn.Set[lnwire.ShortChannelID]
}

// NewPathFinder creates a path finder on top of the given graph. The
// bandwidth hints are optional, if they are nil no local balance is taken
// into account.
func NewPathFinder(graph Graph, cfg *CostConfig,
	bandwidth bandwidthHints) *PathFinder {

	if cfg == nil {
		cfg = DefaultCostConfig()
	}

	return &PathFinder{
		graph:     graph,
		cfg:       cfg,
		bandwidth: bandwidth,
		blacklist: fn.NewSet[lnwire.ShortChannelID](),
	}
}

// Blacklist excludes the channel from all future path finding attempts.
func (p *PathFinder) Blacklist(scid lnwire.ShortChannelID) {
	p.blacklistMtx.Lock()
	defer p.blacklistMtx.Unlock()

	log.Debugf("Blacklisting channel %v", scid)

	p.blacklist.Add(scid)
}

// IsBlacklisted returns true if the channel is excluded from path finding.
func (p *PathFinder) IsBlacklisted(scid lnwire.ShortChannelID) bool {
	p.blacklistMtx.RLock()
	defer p.blacklistMtx.RUnlock()

	return p.blacklist.Contains(scid)
}

// ClearBlacklist makes every channel eligible for path finding again.
func (p *PathFinder) ClearBlacklist() {
	p.blacklistMtx.Lock()
	defer p.blacklistMtx.Unlock()

	p.blacklist = fn.NewSet[lnwire.ShortChannelID]()
}

// EdgeCost is the heuristic cost of travelling through the channel starting
// at the given node. Channels that can't carry the payment cost +Inf.
func (p *PathFinder) EdgeCost(scid lnwire.ShortChannelID,
	start route.Vertex, amt fn.Option[lnwire.MilliSatoshi],
	ignoreCltv bool) float64 {

	info, err := p.graph.ChannelInfo(scid).UnwrapOrErr(ErrChannelVanished)
	if err != nil {
		return infinity
	}

	policy := info.PolicyForNode(start)
	if policy == nil || policy.IsDisabled() {
		return infinity
	}

	if amt.IsSome() {
		payAmt := amt.UnwrapOr(0)

		// The payment amount is too small for the channel.
		if payAmt < policy.MinHTLC {
			return infinity
		}

		// The payment amount exceeds the channel's capacity.
		tooLarge := fn.ElimOption(
			info.Capacity, func() bool { return false },
			func(c btcutil.Amount) bool {
				return payAmt.ToSatoshis() > c
			},
		)
		if tooLarge {
			return infinity
		}

		// If this is one of our own channels we know its balance.
		if p.bandwidth != nil {
			bandwidth, ok := p.bandwidth.availableChanBandwidth(scid)
			if ok && bandwidth < payAmt {
				log.Tracef("Skipping local channel %v, "+
					"bandwidth=%v below amount=%v", scid,
					bandwidth, payAmt)

				return infinity
			}
		}
	}

	estimate := amt.UnwrapOr(p.cfg.DefaultPaymentAmount)
	feeMsat := float64(policy.FeeBaseMSat) +
		float64(estimate)*float64(policy.FeeProportionalMillionths)/
			1_000_000

	var cltvCost float64
	if !ignoreCltv {
		cltvCost = float64(policy.TimeLockDelta)
	}

	return cltvCost + feeMsat/1000/p.cfg.FeeDivisor + p.cfg.HopPenalty
}

// FindPath runs Dijkstra from source to target and returns the cheapest
// path. The timelock of the source's own channels is free, since the source
// doesn't charge itself. A path from a node to itself is empty.
func (p *PathFinder) FindPath(source, target route.Vertex,
	amt fn.Option[lnwire.MilliSatoshi]) ([]PathEdge, error) {

	defer monitoring.ObservePathFinding(time.Now())

	if source == target {
		return nil, nil
	}

	type prevHop struct {
		node route.Vertex
		scid lnwire.ShortChannelID
	}

	var (
		distance = map[route.Vertex]float64{source: 0}
		prev     = make(map[route.Vertex]prevHop)
		nodeHeap queue.PriorityQueue
		found    bool
	)

	dist := func(v route.Vertex) float64 {
		if d, ok := distance[v]; ok {
			return d
		}
		return infinity
	}

	nodeHeap.Push(&nodeWithDist{dist: 0, node: source})

	for !nodeHeap.Empty() {
		cur := nodeHeap.Pop().(*nodeWithDist)
		if cur.node == target {
			found = true
			break
		}

		// The heap has no decrease-key, so a node may have been pushed
		// again with a better distance. Skip the stale entries.
		if cur.dist != dist(cur.node) {
			continue
		}

		chans := fn.Filter(func(scid lnwire.ShortChannelID) bool {
			return !p.IsBlacklisted(scid)
		}, p.graph.ChannelsForNode(cur.node).ToSlice())
		sort.Slice(chans, func(i, j int) bool {
			return chans[i].ToUint64() < chans[j].ToUint64()
		})

		for _, scid := range chans {
			info, err := p.graph.ChannelInfo(scid).UnwrapOrErr(
				ErrChannelVanished,
			)
			if err != nil {
				continue
			}

			neighbour, err := info.OtherNodeKeyBytes(cur.node)
			if err != nil {
				log.Debugf("Node %v indexed for foreign "+
					"channel %v", cur.node, scid)
				continue
			}

			cost := p.EdgeCost(scid, cur.node, amt, cur.node == source)
			if math.IsInf(cost, 1) {
				continue
			}

			alt := cur.dist + cost
			if alt < dist(neighbour) {
				distance[neighbour] = alt
				prev[neighbour] = prevHop{node: cur.node, scid: scid}
				nodeHeap.Push(&nodeWithDist{
					dist: alt,
					node: neighbour,
				})
			}
		}
	}

	if !found {
		return nil, ErrNoPathFound
	}

	// Backtrack from the target to the source and reverse the result.
	var backwards []PathEdge
	for node := target; node != source; {
		hop := prev[node]
		backwards = append(backwards, fn.NewT2(node, hop.scid))
		node = hop.node
	}
	path := fn.Reverse(backwards)

	log.Debugf("Found path from %v to %v with %d hops, cost=%v", source,
		target, len(path), distance[target])

	return path, nil
}

// CreateRoute resolves the forwarding policy of every edge of the path. The
// policy of an edge is the one advertised by the node the edge starts at.
// The graph may have changed since the path was found, in which case a
// RouteError names the offending channel.
func (p *PathFinder) CreateRoute(path []PathEdge,
	source route.Vertex) ([]*RouteEdge, error) {

	edges := make([]*RouteEdge, 0, len(path))

	prevNode := source
	for _, step := range path {
		node, scid := step.AsGoPair()

		info, err := p.graph.ChannelInfo(scid).UnwrapOrErr(
			&RouteError{Code: ErrChannelVanished, ChannelID: scid},
		)
		if err != nil {
			return nil, err
		}

		policy := info.PolicyForNode(prevNode)
		if policy == nil {
			return nil, &RouteError{
				Code:      ErrPolicyVanished,
				ChannelID: scid,
			}
		}

		edges = append(edges, &RouteEdge{
			NodeID:    node,
			ChannelID: scid,
			Policy:    policy,
		})
		prevNode = node
	}

	return edges, nil
}
